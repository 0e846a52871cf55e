package auth

import "sort"

// Permission is an atomic "resource:action" capability string. Matching is
// exact and case-sensitive; there are no wildcards.
type Permission = string

const (
	PermBlogRead   Permission = "blog:read"
	PermBlogCreate Permission = "blog:create"
	PermBlogUpdate Permission = "blog:update"
	PermBlogDelete Permission = "blog:delete"

	PermCommentRead   Permission = "comment:read"
	PermCommentCreate Permission = "comment:create"
	PermCommentUpdate Permission = "comment:update"
	PermCommentDelete Permission = "comment:delete"
	PermCommentLike   Permission = "comment:like"

	PermCategoryRead   Permission = "category:read"
	PermCategoryCreate Permission = "category:create"
	PermCategoryUpdate Permission = "category:update"
	PermCategoryDelete Permission = "category:delete"

	PermUserRead   Permission = "user:read"
	PermUserUpdate Permission = "user:update"
	PermUserDelete Permission = "user:delete"
	PermUserManage Permission = "user:manage"
)

// Registry is the static role to permission-set mapping. It is read-only
// after construction; changing a grant means building a new Registry, not
// mutating a live one.
type Registry struct {
	grants map[Role]map[Permission]struct{}
}

// NewRegistry builds the default registry. Moderators extend users,
// admins extend moderators.
func NewRegistry() *Registry {
	userPerms := []Permission{
		PermBlogRead, PermBlogCreate, PermBlogUpdate,
		PermCommentRead, PermCommentCreate, PermCommentUpdate, PermCommentLike,
		PermCategoryRead,
		PermUserRead,
	}
	moderatorPerms := append([]Permission{
		PermCommentDelete, PermBlogDelete,
	}, userPerms...)
	adminPerms := append([]Permission{
		PermCategoryCreate, PermCategoryUpdate, PermCategoryDelete,
		PermUserUpdate, PermUserDelete, PermUserManage,
	}, moderatorPerms...)

	return NewRegistryWithGrants(map[Role][]Permission{
		RoleUser:      userPerms,
		RoleModerator: moderatorPerms,
		RoleAdmin:     adminPerms,
	})
}

// NewRegistryWithGrants builds a registry from an explicit table. The input
// is copied; later mutation of the argument does not affect the registry.
func NewRegistryWithGrants(grants map[Role][]Permission) *Registry {
	table := make(map[Role]map[Permission]struct{}, len(grants))
	for role, perms := range grants {
		set := make(map[Permission]struct{}, len(perms))
		for _, p := range perms {
			set[p] = struct{}{}
		}
		table[role] = set
	}
	return &Registry{grants: table}
}

// Has reports whether the role holds the permission. Unknown roles hold
// nothing; the check never fails.
func (r *Registry) Has(role Role, perm Permission) bool {
	set, ok := r.grants[role]
	if !ok {
		return false
	}
	_, ok = set[perm]
	return ok
}

// PermissionsFor returns the role's permissions in sorted order. Unknown
// roles yield an empty slice.
func (r *Registry) PermissionsFor(role Role) []Permission {
	set, ok := r.grants[role]
	if !ok {
		return nil
	}
	out := make([]Permission, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
