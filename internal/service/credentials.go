package service

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/clientdash/internal/db"
	"github.com/clientdash/internal/source"
)

// CredentialBox 加解密数据源凭据，由 secret.Box 实现。
type CredentialBox interface {
	Seal(plaintext []byte) (string, error)
	Open(token string) ([]byte, error)
}

func sealCredentials(box CredentialBox, creds source.Credentials) (string, error) {
	raw, err := json.Marshal(creds.Fields())
	if err != nil {
		return "", fmt.Errorf("encode credentials: %w", err)
	}
	sealed, err := box.Seal(raw)
	if err != nil {
		return "", fmt.Errorf("seal credentials: %w", err)
	}
	return sealed, nil
}

// openCredentials 解密并按来源类型重新校验凭据。
func openCredentials(box CredentialBox, ds db.DataSource) (source.Credentials, error) {
	t, err := source.ParseType(ds.SourceType)
	if err != nil {
		return nil, err
	}
	plain, err := box.Open(ds.Credentials)
	if err != nil {
		return nil, &source.ConfigError{Source: t, Field: "credentials", Reason: "cannot be decrypted"}
	}
	var fields map[string]string
	if err := json.Unmarshal(plain, &fields); err != nil {
		return nil, &source.ConfigError{Source: t, Field: "credentials", Reason: "are not a key/value object"}
	}
	return source.DecodeCredentials(t, fields)
}

// credentialFieldNames 只暴露字段名，不暴露值。
func credentialFieldNames(box CredentialBox, ds db.DataSource) []string {
	creds, err := openCredentials(box, ds)
	if err != nil {
		return []string{}
	}
	names := make([]string, 0, len(creds.Fields()))
	for name := range creds.Fields() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
