package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atparui/rms-console/internal/domain/rms"
)

func TestBuildQuery_SkipsNilAndRepeatsSlices(t *testing.T) {
	yes := true
	var unset *bool
	q := BuildQuery(map[string]any{
		"query":     "pizza",
		"page":      2,
		"missing":   nil,
		"unset":     unset,
		"available": &yes,
		"sort":      []string{"name,asc", "id,desc"},
	})

	assert.Equal(t, "pizza", q.Get("query"))
	assert.Equal(t, "2", q.Get("page"))
	assert.Equal(t, "true", q.Get("available"))
	assert.Equal(t, []string{"name,asc", "id,desc"}, q["sort"])
	assert.NotContains(t, q, "missing")
	assert.NotContains(t, q, "unset")
}

func TestParseQueryArgs(t *testing.T) {
	q, err := ParseQueryArgs([]string{"query=main", "sort=name,asc", "sort=id,desc"})
	require.NoError(t, err)
	assert.Equal(t, "main", q.Get("query"))
	assert.Equal(t, []string{"name,asc", "id,desc"}, q["sort"])

	_, err = ParseQueryArgs([]string{"novalue"})
	require.Error(t, err)
}

func TestResources_Paths(t *testing.T) {
	cases := []struct {
		name   string
		call   func(ctx context.Context, api *API) error
		method string
		path   string
		query  url.Values
	}{
		{"list restaurants", func(ctx context.Context, api *API) error {
			_, err := api.Restaurants.List(ctx, nil)
			return err
		}, http.MethodGet, "/restaurants", url.Values{}},
		{"search branches", func(ctx context.Context, api *API) error {
			page := 1
			_, err := api.Branches.Search(ctx, rms.SearchParams{Query: "north", Page: &page}.Values())
			return err
		}, http.MethodGet, "/branches/_search", url.Values{"query": {"north"}, "page": {"1"}}},
		{"get user", func(ctx context.Context, api *API) error {
			_, err := api.Users.Get(ctx, "u 1")
			return err
		}, http.MethodGet, "/rms-users/u 1", url.Values{}},
		{"items by category", func(ctx context.Context, api *API) error {
			_, err := api.MenuItems.ByCategory(ctx, "c1")
			return err
		}, http.MethodGet, "/menu-items/category/c1", url.Values{}},
		{"items available at branch", func(ctx context.Context, api *API) error {
			_, err := api.MenuItems.AvailableAtBranch(ctx, "b1")
			return err
		}, http.MethodGet, "/menu-items/branch/b1/available", url.Values{}},
		{"items filtered at branch", func(ctx context.Context, api *API) error {
			veg := true
			_, err := api.MenuItems.FilteredAtBranch(ctx, "b1", ItemFilter{CategoryID: "c1", IsVegetarian: &veg})
			return err
		}, http.MethodGet, "/menu-items/branch/b1/filtered", url.Values{"categoryId": {"c1"}, "isVegetarian": {"true"}}},
		{"item availability", func(ctx context.Context, api *API) error {
			_, err := api.MenuItems.SetAvailability(ctx, "i1", false)
			return err
		}, http.MethodPatch, "/menu-items/i1/availability", url.Values{}},
		{"revoke role", func(ctx context.Context, api *API) error {
			_, err := api.UserBranchRoles.Revoke(ctx, "ubr1")
			return err
		}, http.MethodPost, "/user-branch-roles/ubr1/revoke", url.Values{}},
		{"patch restaurant", func(ctx context.Context, api *API) error {
			_, err := api.Restaurants.Patch(ctx, "r1", map[string]any{"name": "New"})
			return err
		}, http.MethodPatch, "/restaurants/r1", url.Values{}},
		{"update table", func(ctx context.Context, api *API) error {
			_, err := api.BranchTables.Update(ctx, "t1", rms.BranchTable{})
			return err
		}, http.MethodPut, "/branch-tables/t1", url.Values{}},
		{"create order", func(ctx context.Context, api *API) error {
			_, err := api.Orders.Create(ctx, rms.Order{})
			return err
		}, http.MethodPost, "/orders", url.Values{}},
		{"delete bill", func(ctx context.Context, api *API) error {
			return api.Bills.Delete(ctx, "b9")
		}, http.MethodDelete, "/bills/b9", url.Values{}},
		{"menu tree", func(ctx context.Context, api *API) error {
			_, err := api.MenuTree(ctx, "RMS")
			return err
		}, http.MethodGet, "/app-menus/tree", url.Values{"appKey": {"RMS"}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := `{}`
			if tc.method == http.MethodGet {
				body = `[]`
			}
			if tc.name == "get user" {
				body = `{}`
			}
			srv, rec := newBackend(t, http.StatusOK, body)
			api := NewAPI(newClient(t, srv.URL, nil))

			require.NoError(t, tc.call(context.Background(), api))

			got := rec.snapshot()
			assert.Equal(t, tc.method, got.method)
			assert.Equal(t, DefaultPathPrefix+tc.path, got.path)
			assert.Equal(t, tc.query, got.query)
		})
	}
}

func TestMenuItems_SetAvailabilityBody(t *testing.T) {
	srv, rec := newBackend(t, http.StatusOK, `{"id":"i1","isAvailable":false}`)
	api := NewAPI(newClient(t, srv.URL, nil))

	_, err := api.MenuItems.SetAvailability(context.Background(), "i1", false)
	require.NoError(t, err)
	assert.JSONEq(t, `{"isAvailable":false}`, rec.snapshot().body)
}

func TestIsResource(t *testing.T) {
	assert.True(t, IsResource("menu-items"))
	assert.True(t, IsResource("table-assignments"))
	assert.False(t, IsResource("app-menus/tree"))
	assert.False(t, IsResource("widgets"))
	assert.Len(t, Resources(), 14)
}
