package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/atparui/rms-console/config"
	"github.com/atparui/rms-console/internal/ports"
	"github.com/atparui/rms-console/internal/tenant"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// accessTokenEnv short-circuits the client-credentials grant with a token obtained elsewhere.
const accessTokenEnv = "RMS_ACCESS_TOKEN"

type tokenSourceFactory func(ctx context.Context, cfg config.AppConfig) (oauth2.TokenSource, error)

func clientCredentials(ctx context.Context, cfg config.AppConfig) (oauth2.TokenSource, error) {
	if tok := strings.TrimSpace(os.Getenv(accessTokenEnv)); tok != "" {
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: tok}), nil
	}
	if cfg.Auth.Keycloak.ClientSecret == "" {
		return nil, fmt.Errorf("KEYCLOAK_CLIENT_SECRET is required for the client-credentials grant (or set %s)", accessTokenEnv)
	}
	cc := clientcredentials.Config{
		ClientID:     cfg.Auth.Keycloak.ClientID,
		ClientSecret: cfg.Auth.Keycloak.ClientSecret,
		TokenURL:     cfg.Auth.Keycloak.Issuer() + "/protocol/openid-connect/token",
		Scopes:       cfg.Auth.OAuth.Scopes(),
	}
	return oauth2.ReuseTokenSource(nil, cc.TokenSource(ctx)), nil
}

// bearer adapts an oauth2 token source to the API client's token port.
func bearer(ts oauth2.TokenSource) ports.TokenSource {
	return ports.TokenSourceFunc(func(context.Context) (string, error) {
		tok, err := ts.Token()
		if err != nil {
			return "", fmt.Errorf("fetch token: %w", err)
		}
		return tok.AccessToken, nil
	})
}

type tokenOptions struct {
	Raw bool
}

func runToken(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	var opts tokenOptions
	fs.BoolVar(&opts.Raw, "raw", false, "Print only the access token")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ts, err := ctx.tokens(ctx.Ctx, ctx.Config)
	if err != nil {
		return err
	}
	tok, err := ts.Token()
	if err != nil {
		return fmt.Errorf("fetch token: %w", err)
	}
	if opts.Raw {
		return writeln(ctx.Out, tok.AccessToken)
	}

	resolver, err := tenant.NewResolver(ctx.Config.API.TenantClaim)
	if err != nil {
		return fmt.Errorf("tenant claim: %w", err)
	}
	return printToken(ctx.Out, tok, resolver)
}

func printToken(w io.Writer, tok *oauth2.Token, resolver *tenant.Resolver) error {
	claims, ok := tenant.Claims(tok.AccessToken)
	if !ok {
		return errors.New("access token is not a decodable JWT")
	}

	tenantID, found := resolver.Resolve(tok.AccessToken)
	if !found {
		tenantID = "(none)"
	}
	if err := writef(w, "Tenant (%s): %s\n", resolver.Claim(), tenantID); err != nil {
		return err
	}
	if !tok.Expiry.IsZero() {
		if err := writef(w, "Expires: %s\n", tok.Expiry.UTC().Format(time.RFC3339)); err != nil {
			return err
		}
	}
	if err := writeln(w); err != nil {
		return err
	}

	keys := make([]string, 0, len(claims))
	for k := range claims {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := writeln(tw, "CLAIM\tVALUE"); err != nil {
		return fmt.Errorf("write claims header row: %w", err)
	}
	for _, k := range keys {
		if err := writef(tw, "%s\t%s\n", k, claimValue(claims[k])); err != nil {
			return fmt.Errorf("write claim %s: %w", k, err)
		}
	}
	return tw.Flush()
}

func claimValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
