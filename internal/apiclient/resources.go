package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/atparui/rms-console/internal/domain/menu"
	"github.com/atparui/rms-console/internal/domain/rms"
)

// Resource is a typed CRUD binding for one backend collection.
type Resource[T any] struct {
	c    *Client
	path string
}

// NewResource binds the collection at path (relative to the API prefix).
func NewResource[T any](c *Client, path string) Resource[T] {
	return Resource[T]{c: c, path: "/" + trimSlashes(path)}
}

// Path returns the collection path.
func (r Resource[T]) Path() string { return r.path }

func (r Resource[T]) item(id string) string {
	return r.path + "/" + url.PathEscape(id)
}

// List fetches the collection, optionally filtered by query.
func (r Resource[T]) List(ctx context.Context, query url.Values) ([]T, error) {
	return Do[[]T](ctx, r.c, r.path, RequestOptions{Query: query})
}

// Get fetches one entity.
func (r Resource[T]) Get(ctx context.Context, id string) (T, error) {
	return Do[T](ctx, r.c, r.item(id), RequestOptions{})
}

// Search calls the collection's _search endpoint.
func (r Resource[T]) Search(ctx context.Context, query url.Values) ([]T, error) {
	return Do[[]T](ctx, r.c, r.path+"/_search", RequestOptions{Query: query})
}

// Create posts a new entity and returns the stored version.
func (r Resource[T]) Create(ctx context.Context, v T) (T, error) {
	return Do[T](ctx, r.c, r.path, RequestOptions{Method: http.MethodPost, Body: v})
}

// Update replaces the entity with PUT.
func (r Resource[T]) Update(ctx context.Context, id string, v T) (T, error) {
	return Do[T](ctx, r.c, r.item(id), RequestOptions{Method: http.MethodPut, Body: v})
}

// Patch sends a partial update; only the fields present in patch change.
func (r Resource[T]) Patch(ctx context.Context, id string, patch any) (T, error) {
	return Do[T](ctx, r.c, r.item(id), RequestOptions{Method: http.MethodPatch, Body: patch})
}

// Delete removes the entity.
func (r Resource[T]) Delete(ctx context.Context, id string) error {
	_, err := r.c.Request(ctx, r.item(id), RequestOptions{Method: http.MethodDelete})
	return err
}

// Collection paths exposed by the backend.
const (
	PathRestaurants      = "restaurants"
	PathBranches         = "branches"
	PathUsers            = "rms-users"
	PathUserBranchRoles  = "user-branch-roles"
	PathPermissions      = "permissions"
	PathRolePermissions  = "role-permissions"
	PathMenuCategories   = "menu-categories"
	PathMenuItems        = "menu-items"
	PathCustomers        = "customers"
	PathInventories      = "inventories"
	PathOrders           = "orders"
	PathBills            = "bills"
	PathBranchTables     = "branch-tables"
	PathTableAssignments = "table-assignments"
	PathAppMenuTree      = "app-menus/tree"
)

// Resources lists every collection path, sorted.
func Resources() []string {
	out := []string{
		PathRestaurants, PathBranches, PathUsers, PathUserBranchRoles, PathPermissions,
		PathRolePermissions, PathMenuCategories, PathMenuItems, PathCustomers, PathInventories,
		PathOrders, PathBills, PathBranchTables, PathTableAssignments,
	}
	sort.Strings(out)
	return out
}

// IsResource reports whether name is a known collection path.
func IsResource(name string) bool {
	for _, r := range Resources() {
		if r == name {
			return true
		}
	}
	return false
}

// API groups the typed resources over one Client.
type API struct {
	Restaurants      Resource[rms.Restaurant]
	Branches         Resource[rms.Branch]
	Users            Resource[rms.RmsUser]
	UserBranchRoles  UserBranchRoles
	Permissions      Resource[rms.Permission]
	RolePermissions  Resource[rms.RolePermission]
	MenuCategories   Resource[rms.MenuCategory]
	MenuItems        MenuItems
	Customers        Resource[rms.Customer]
	Inventories      Resource[rms.Inventory]
	Orders           Resource[rms.Order]
	Bills            Resource[rms.Bill]
	BranchTables     Resource[rms.BranchTable]
	TableAssignments Resource[rms.TableAssignment]

	c *Client
}

// NewAPI binds every collection to c.
func NewAPI(c *Client) *API {
	return &API{
		Restaurants:      NewResource[rms.Restaurant](c, PathRestaurants),
		Branches:         NewResource[rms.Branch](c, PathBranches),
		Users:            NewResource[rms.RmsUser](c, PathUsers),
		UserBranchRoles:  UserBranchRoles{Resource: NewResource[rms.UserBranchRole](c, PathUserBranchRoles)},
		Permissions:      NewResource[rms.Permission](c, PathPermissions),
		RolePermissions:  NewResource[rms.RolePermission](c, PathRolePermissions),
		MenuCategories:   NewResource[rms.MenuCategory](c, PathMenuCategories),
		MenuItems:        MenuItems{Resource: NewResource[rms.MenuItem](c, PathMenuItems)},
		Customers:        NewResource[rms.Customer](c, PathCustomers),
		Inventories:      NewResource[rms.Inventory](c, PathInventories),
		Orders:           NewResource[rms.Order](c, PathOrders),
		Bills:            NewResource[rms.Bill](c, PathBills),
		BranchTables:     NewResource[rms.BranchTable](c, PathBranchTables),
		TableAssignments: NewResource[rms.TableAssignment](c, PathTableAssignments),
		c:                c,
	}
}

// MenuTree fetches the permission-filtered navigation tree for appKey.
func (a *API) MenuTree(ctx context.Context, appKey string) ([]menu.Node, error) {
	q := url.Values{}
	if appKey != "" {
		q.Set("appKey", appKey)
	}
	return Do[[]menu.Node](ctx, a.c, "/"+PathAppMenuTree, RequestOptions{Query: q})
}

// MenuItems adds the menu-item sub-routes.
type MenuItems struct {
	Resource[rms.MenuItem]
}

// ByCategory lists the items of one category.
func (m MenuItems) ByCategory(ctx context.Context, categoryID string) ([]rms.MenuItem, error) {
	return Do[[]rms.MenuItem](ctx, m.c, m.path+"/category/"+url.PathEscape(categoryID), RequestOptions{})
}

// AvailableAtBranch lists items currently available at a branch.
func (m MenuItems) AvailableAtBranch(ctx context.Context, branchID string) ([]rms.MenuItem, error) {
	return Do[[]rms.MenuItem](ctx, m.c, m.path+"/branch/"+url.PathEscape(branchID)+"/available", RequestOptions{})
}

// ItemFilter narrows FilteredAtBranch. Nil fields are not sent.
type ItemFilter struct {
	rms.SearchParams
	CategoryID   string
	IsAvailable  *bool
	IsVegetarian *bool
	IsVegan      *bool
	IsActive     *bool
}

// Values encodes the filter for the filtered and _search endpoints.
func (f ItemFilter) Values() url.Values {
	v := BuildQuery(map[string]any{
		"categoryId":   nonEmpty(f.CategoryID),
		"isAvailable":  f.IsAvailable,
		"isVegetarian": f.IsVegetarian,
		"isVegan":      f.IsVegan,
		"isActive":     f.IsActive,
	})
	for k, vs := range f.SearchParams.Values() {
		v[k] = vs
	}
	return v
}

// FilteredAtBranch lists branch items matching f.
func (m MenuItems) FilteredAtBranch(ctx context.Context, branchID string, f ItemFilter) ([]rms.MenuItem, error) {
	return Do[[]rms.MenuItem](ctx, m.c, m.path+"/branch/"+url.PathEscape(branchID)+"/filtered",
		RequestOptions{Query: f.Values()})
}

// SetAvailability toggles whether an item can be ordered.
func (m MenuItems) SetAvailability(ctx context.Context, id string, available bool) (rms.MenuItem, error) {
	return Do[rms.MenuItem](ctx, m.c, m.item(id)+"/availability", RequestOptions{
		Method: http.MethodPatch,
		Body:   rms.AvailabilityUpdate{IsAvailable: available},
	})
}

// UserBranchRoles adds the assign and revoke actions.
type UserBranchRoles struct {
	Resource[rms.UserBranchRole]
}

// Assign grants a role on a branch.
func (u UserBranchRoles) Assign(ctx context.Context, role rms.UserBranchRole) (rms.UserBranchRole, error) {
	return u.Create(ctx, role)
}

// Revoke deactivates an assignment without deleting it.
func (u UserBranchRoles) Revoke(ctx context.Context, id string) (rms.UserBranchRole, error) {
	return Do[rms.UserBranchRole](ctx, u.c, u.item(id)+"/revoke", RequestOptions{Method: http.MethodPost})
}

// Page builds list pagination params.
func Page(page, size int) url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(page))
	v.Set("size", strconv.Itoa(size))
	return v
}

func nonEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func trimSlashes(p string) string { return strings.Trim(p, "/") }
