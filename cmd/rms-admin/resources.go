package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"strings"
	"text/tabwriter"

	"github.com/atparui/rms-console/internal/apiclient"
	"github.com/atparui/rms-console/internal/domain/menu"
	"github.com/atparui/rms-console/internal/tenant"
)

func newAPIClient(ctx *commandContext) (*apiclient.Client, error) {
	ts, err := ctx.tokens(ctx.Ctx, ctx.Config)
	if err != nil {
		return nil, err
	}
	resolver, err := tenant.NewResolver(ctx.Config.API.TenantClaim)
	if err != nil {
		return nil, fmt.Errorf("tenant claim: %w", err)
	}
	return apiclient.New(apiclient.Config{
		Origin:     ctx.Config.API.Origin,
		PathPrefix: ctx.Config.API.PathPrefix,
		Timeout:    ctx.Config.API.Timeout,
		Tokens:     bearer(ts),
		Tenants:    resolver,
		Logger:     ctx.Logger,
	})
}

type menuTreeOptions struct {
	AppKey string
	JSON   bool
}

func runMenuTree(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("menu-tree", flag.ContinueOnError)
	var opts menuTreeOptions
	fs.StringVar(&opts.AppKey, "app", ctx.Config.API.AppKey, "App key whose tree to fetch")
	fs.BoolVar(&opts.JSON, "json", false, "Print the raw tree as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newAPIClient(ctx)
	if err != nil {
		return err
	}
	nodes, err := apiclient.NewAPI(client).MenuTree(ctx.Ctx, opts.AppKey)
	if err != nil {
		return fmt.Errorf("fetch menu tree: %w", err)
	}
	if opts.JSON {
		return printJSON(ctx.Out, nodes)
	}
	return printMenuTree(ctx.Out, nodes)
}

func printMenuTree(w io.Writer, nodes []menu.Node) error {
	if len(nodes) == 0 {
		return writeln(w, "No menu items.")
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := writeln(tw, "LABEL\tROUTE\tPERMISSIONS"); err != nil {
		return fmt.Errorf("write menu header row: %w", err)
	}
	for _, e := range menu.Flatten(nodes, "") {
		perms := strings.Join(e.RequiredPermissions, ",")
		if perms != "" && e.PermissionLogic != "" {
			perms = string(e.PermissionLogic) + ":" + perms
		}
		if err := writef(tw, "%s%s\t%s\t%s\n", strings.Repeat("  ", e.Depth), e.Label, e.Href(), perms); err != nil {
			return fmt.Errorf("write menu row %d: %w", e.ID, err)
		}
	}
	return tw.Flush()
}

func runList(ctx *commandContext, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: list <resource> [key=value ...]")
	}
	resource := args[0]
	if !apiclient.IsResource(resource) {
		return unknownResource(resource)
	}
	query, err := parseQuery(args[1:])
	if err != nil {
		return err
	}

	client, err := newAPIClient(ctx)
	if err != nil {
		return err
	}
	body, err := client.Request(ctx.Ctx, resource, apiclient.RequestOptions{Query: query})
	if err != nil {
		return fmt.Errorf("list %s: %w", resource, err)
	}
	return printRaw(ctx.Out, body)
}

func runGet(ctx *commandContext, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: get <resource> <id>")
	}
	resource, id := args[0], strings.TrimSpace(args[1])
	if !apiclient.IsResource(resource) {
		return unknownResource(resource)
	}
	if id == "" {
		return errors.New("id is required")
	}

	client, err := newAPIClient(ctx)
	if err != nil {
		return err
	}
	body, err := client.Request(ctx.Ctx, resource+"/"+url.PathEscape(id), apiclient.RequestOptions{})
	if err != nil {
		return fmt.Errorf("get %s %s: %w", resource, id, err)
	}
	return printRaw(ctx.Out, body)
}

func unknownResource(name string) error {
	return fmt.Errorf("unknown resource %q (known: %s)", name, strings.Join(apiclient.Resources(), ", "))
}

// parseQuery turns key=value arguments into query parameters; keys may repeat.
func parseQuery(args []string) (url.Values, error) {
	q := url.Values{}
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid filter %q, expected key=value", arg)
		}
		q.Add(k, v)
	}
	return q, nil
}

func printRaw(w io.Writer, body json.RawMessage) error {
	if len(body) == 0 {
		return writeln(w, "(empty response)")
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		return writeln(w, string(body))
	}
	return writeln(w, buf.String())
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
