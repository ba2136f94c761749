// Package directory looks up principals in an LDAP identity directory to
// enrich user records with profile fields.
package directory

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/go-ldap/ldap/v3"

	"acutils-go/internal/acu"
	"acutils-go/internal/config"
)

// LDAP implements acu.DirectoryService against an LDAP server. Each
// lookup dials a fresh connection; lookups are independent so the
// service is safe for concurrent use from enrichment fan-out.
type LDAP struct {
	url      string
	baseDN   string
	bindDN   string
	bindPass string
}

var _ acu.DirectoryService = (*LDAP)(nil)

// New creates an LDAP directory service from configuration. bindPass is
// the secret unlocked from the credential store.
func New(cfg config.LDAPConfig, bindPass string) *LDAP {
	return &LDAP{
		url:      cfg.URL,
		baseDN:   cfg.BaseDN,
		bindDN:   cfg.BindDN,
		bindPass: bindPass,
	}
}

// Lookup searches the directory for the account matching the principal
// name and returns its profile fields.
func (d *LDAP) Lookup(ctx context.Context, userName string) (*acu.DirectoryProfile, error) {
	// The context deadline bounds the dial as well as every operation on
	// the established connection.
	var opts []ldap.DialOpt
	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline {
		opts = append(opts, ldap.DialWithDialer(&net.Dialer{Deadline: deadline}))
	}

	conn, err := ldap.DialURL(d.url, opts...)
	if err != nil {
		return nil, fmt.Errorf("dialing directory: %w", err)
	}
	defer conn.Close()

	if hasDeadline {
		conn.SetTimeout(time.Until(deadline))
	}

	if err := conn.Bind(d.bindDN, d.bindPass); err != nil {
		return nil, fmt.Errorf("binding as %s: %w", d.bindDN, err)
	}

	req := ldap.NewSearchRequest(
		d.baseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		fmt.Sprintf("(sAMAccountName=%s)", ldap.EscapeFilter(userName)),
		[]string{"givenName", "sn", "mail", "telephoneNumber"},
		nil,
	)

	res, err := conn.Search(req)
	if err != nil {
		return nil, fmt.Errorf("searching for %s: %w", userName, err)
	}
	if len(res.Entries) == 0 {
		return nil, fmt.Errorf("no directory entry for %s", userName)
	}

	entry := res.Entries[0]
	return &acu.DirectoryProfile{
		GivenName: entry.GetAttributeValue("givenName"),
		Surname:   entry.GetAttributeValue("sn"),
		Mail:      entry.GetAttributeValue("mail"),
		Phone:     entry.GetAttributeValue("telephoneNumber"),
	}, nil
}
