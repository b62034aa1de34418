package source

import (
	userv1 "github.com/openshift/api/user/v1"
	corev1 "k8s.io/api/core/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

var (
	anarchyGV       = schema.GroupVersion{Group: "anarchy.gpte.redhat.com", Version: "v1"}
	poolboyGV       = schema.GroupVersion{Group: "poolboy.gpte.redhat.com", Version: "v1"}
	babylonGV       = schema.GroupVersion{Group: "babylon.gpte.redhat.com", Version: "v1"}
	usernamespaceGV = schema.GroupVersion{Group: "usernamespace.gpte.redhat.com", Version: "v1"}
	metricsGV       = schema.GroupVersion{Group: "metrics.k8s.io", Version: "v1beta1"}
	kubevirtGV      = schema.GroupVersion{Group: "kubevirt.io", Version: "v1"}
)

// Collection names a remote resource listing. Namespace and LabelSelector
// narrow the listing; both are optional.
type Collection struct {
	Name          string
	Resource      schema.GroupVersionResource
	ListKind      string
	Namespace     string
	LabelSelector string
}

func (c Collection) InNamespace(ns string) Collection {
	c.Namespace = ns
	return c
}

func (c Collection) WithSelector(selector string) Collection {
	c.LabelSelector = selector
	return c
}

var (
	AnarchyActions = Collection{
		Name: "anarchyactions", Resource: anarchyGV.WithResource("anarchyactions"), ListKind: "AnarchyActionList",
	}
	AnarchyRuns = Collection{
		Name: "anarchyruns", Resource: anarchyGV.WithResource("anarchyruns"), ListKind: "AnarchyRunList",
	}
	AnarchySubjects = Collection{
		Name: "anarchysubjects", Resource: anarchyGV.WithResource("anarchysubjects"), ListKind: "AnarchySubjectList",
	}
	ResourcePools = Collection{
		Name: "resourcepools", Resource: poolboyGV.WithResource("resourcepools"), ListKind: "ResourcePoolList",
	}
	ResourceHandles = Collection{
		Name: "resourcehandles", Resource: poolboyGV.WithResource("resourcehandles"), ListKind: "ResourceHandleList",
	}
	ResourceClaims = Collection{
		Name: "resourceclaims", Resource: poolboyGV.WithResource("resourceclaims"), ListKind: "ResourceClaimList",
	}
	Workshops = Collection{
		Name: "workshops", Resource: babylonGV.WithResource("workshops"), ListKind: "WorkshopList",
	}
	WorkshopProvisions = Collection{
		Name: "workshopprovisions", Resource: babylonGV.WithResource("workshopprovisions"), ListKind: "WorkshopProvisionList",
	}
	UserNamespaces = Collection{
		Name: "usernamespaces", Resource: usernamespaceGV.WithResource("usernamespaces"), ListKind: "UserNamespaceList",
	}
	Users = Collection{
		Name: "users", Resource: userv1.SchemeGroupVersion.WithResource("users"), ListKind: "UserList",
	}
	Identities = Collection{
		Name: "identities", Resource: userv1.SchemeGroupVersion.WithResource("identities"), ListKind: "IdentityList",
	}
	Groups = Collection{
		Name: "groups", Resource: userv1.SchemeGroupVersion.WithResource("groups"), ListKind: "GroupList",
	}
	Namespaces = Collection{
		Name: "namespaces", Resource: corev1.SchemeGroupVersion.WithResource("namespaces"), ListKind: "NamespaceList",
	}
	Pods = Collection{
		Name: "pods", Resource: corev1.SchemeGroupVersion.WithResource("pods"), ListKind: "PodList",
	}
	PersistentVolumeClaims = Collection{
		Name:     "persistentvolumeclaims",
		Resource: corev1.SchemeGroupVersion.WithResource("persistentvolumeclaims"),
		ListKind: "PersistentVolumeClaimList",
	}
	PersistentVolumes = Collection{
		Name:     "persistentvolumes",
		Resource: corev1.SchemeGroupVersion.WithResource("persistentvolumes"),
		ListKind: "PersistentVolumeList",
	}
	RoleBindings = Collection{
		Name: "rolebindings", Resource: rbacv1.SchemeGroupVersion.WithResource("rolebindings"), ListKind: "RoleBindingList",
	}
	PodMetrics = Collection{
		Name: "podmetrics", Resource: metricsGV.WithResource("pods"), ListKind: "PodMetricsList",
	}
	VirtualMachines = Collection{
		Name: "virtualmachines", Resource: kubevirtGV.WithResource("virtualmachines"), ListKind: "VirtualMachineList",
	}
)

// All lists every known collection.
func All() []Collection {
	return []Collection{
		AnarchyActions, AnarchyRuns, AnarchySubjects,
		ResourcePools, ResourceHandles, ResourceClaims,
		Workshops, WorkshopProvisions, UserNamespaces,
		Users, Identities, Groups,
		Namespaces, Pods, PersistentVolumeClaims, PersistentVolumes, RoleBindings,
		PodMetrics, VirtualMachines,
	}
}

// ListKinds maps every known resource to its list kind, as needed by
// clients working without discovery.
func ListKinds() map[schema.GroupVersionResource]string {
	kinds := make(map[schema.GroupVersionResource]string)
	for _, c := range All() {
		kinds[c.Resource] = c.ListKind
	}
	return kinds
}
