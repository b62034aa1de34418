package kube

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/models/domain"
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/store/source"
	"github.com/rs/zerolog"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
)

const defaultPageSize = 500

// Config holds the cluster connection settings.
type Config struct {
	APIURL    string
	TokenFile string
	CAFile    string
	QPS       float32
	Burst     int
	PageSize  int64
}

// RestConfig builds a bearer token client configuration. The token file
// content is trimmed, so secrets with a trailing newline work as-is.
func RestConfig(cfg Config) (*rest.Config, error) {
	raw, err := os.ReadFile(cfg.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}
	token := strings.TrimSpace(string(raw))
	if token == "" {
		return nil, fmt.Errorf("token file %s is empty", cfg.TokenFile)
	}

	return &rest.Config{
		Host:        cfg.APIURL,
		BearerToken: token,
		TLSClientConfig: rest.TLSClientConfig{
			CAFile: cfg.CAFile,
		},
		QPS:   cfg.QPS,
		Burst: cfg.Burst,
	}, nil
}

// Source lists records through the dynamic client.
type Source struct {
	client   dynamic.Interface
	pageSize int64
}

func NewSource(client dynamic.Interface, pageSize int64) *Source {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Source{client: client, pageSize: pageSize}
}

func NewSourceForConfig(cfg Config) (*Source, error) {
	restConfig, err := RestConfig(cfg)
	if err != nil {
		return nil, err
	}
	client, err := dynamic.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic client: %w", err)
	}
	return NewSource(client, cfg.PageSize), nil
}

func (s *Source) List(ctx context.Context, c source.Collection) ([]domain.Record, error) {
	logger := zerolog.Ctx(ctx)
	res := s.resource(c, c.Namespace)

	var records []domain.Record
	opts := metav1.ListOptions{LabelSelector: c.LabelSelector, Limit: s.pageSize}
	for page := 1; ; page++ {
		list, err := res.List(ctx, opts)
		if err != nil {
			return nil, fetchError(c, "list", err)
		}
		for _, item := range list.Items {
			records = append(records, domain.Record(item.Object))
		}
		logger.Debug().
			Str("collection", c.Name).
			Int("page", page).
			Int("items", len(list.Items)).
			Msg("listed page")

		opts.Continue = list.GetContinue()
		if opts.Continue == "" {
			break
		}
	}
	return records, nil
}

func (s *Source) Get(ctx context.Context, c source.Collection, namespace, name string) (domain.Record, error) {
	obj, err := s.resource(c, namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			key := domain.Key{Namespace: namespace, Name: name}
			return nil, &source.FetchError{
				Collection: c.Name,
				Op:         "get",
				Err:        fmt.Errorf("%w: %s", source.ErrNotFound, key),
			}
		}
		return nil, fetchError(c, "get", err)
	}
	return domain.Record(obj.Object), nil
}

func (s *Source) resource(c source.Collection, namespace string) dynamic.ResourceInterface {
	res := s.client.Resource(c.Resource)
	if namespace != "" {
		return res.Namespace(namespace)
	}
	return res
}

func fetchError(c source.Collection, op string, err error) error {
	return &source.FetchError{
		Collection:   c.Name,
		Op:           op,
		Unauthorized: apierrors.IsUnauthorized(err) || apierrors.IsForbidden(err),
		Err:          err,
	}
}
