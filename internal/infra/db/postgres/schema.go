package postgres

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-login-relay/internal/domain"
	"telegram-login-relay/internal/domain/model"
)

//go:embed schema/001_schema.sql schema/002_generate_auth_token.sql.tmpl
var schemaFS embed.FS

var issueFuncTmpl = template.Must(template.ParseFS(schemaFS, "schema/002_generate_auth_token.sql.tmpl"))

// SchemaSQL returns the base DDL.
func SchemaSQL() (string, error) {
	b, err := schemaFS.ReadFile("schema/001_schema.sql")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// IssueFunctionSQL renders generate_auth_token with the dashboard login URL baked in.
func IssueFunctionSQL(dashboardURL string) (string, error) {
	if strings.TrimSpace(dashboardURL) == "" {
		return "", fmt.Errorf("dashboard url is empty")
	}
	// The literal is rendered inside a dollar-quoted function body.
	if strings.Contains(dashboardURL, "$") {
		return "", fmt.Errorf("%w: dashboard url must not contain '$'", domain.ErrInvalidArgument)
	}
	prefix := strings.TrimRight(dashboardURL, "/") + "/auth/login?token="
	var buf bytes.Buffer
	err := issueFuncTmpl.Execute(&buf, struct {
		LoginURLPrefix string
		TTLSeconds     int64
	}{
		LoginURLPrefix: quoteLiteral(prefix),
		TTLSeconds:     int64(model.CredentialTTL.Seconds()),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// quoteLiteral renders s as a standard-conforming SQL string literal.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// ApplySchema creates all tables and indexes.
func ApplySchema(ctx context.Context, pool *pgxpool.Pool) error {
	ddl, err := SchemaSQL()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// ApplyIssueFunction creates or replaces generate_auth_token.
func ApplyIssueFunction(ctx context.Context, pool *pgxpool.Pool, dashboardURL string) error {
	sql, err := IssueFunctionSQL(dashboardURL)
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("apply generate_auth_token: %w", err)
	}
	return nil
}
