package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"distripos/internal/core/apperror"
	"distripos/internal/core/id"
	"distripos/internal/core/tenant"
	"distripos/internal/domain/auth"
)

// Tenants implements auth.TenantRepository.
type Tenants struct{ s *Store }

func (s *Store) Tenants() *Tenants { return &Tenants{s: s} }

var _ auth.TenantRepository = (*Tenants)(nil)

func (r *Tenants) Create(_ context.Context, t *tenant.Tenant) error {
	return r.s.write("tenant.Create", func(st *state) error {
		st.tenants[t.ID] = *t
		return nil
	})
}

func (r *Tenants) GetByID(_ context.Context, tenantID id.ID) (*tenant.Tenant, error) {
	var out *tenant.Tenant
	r.s.read(func(st *state) {
		if t, ok := st.tenants[tenantID]; ok {
			out = &t
		}
	})
	if out == nil {
		return nil, apperror.NewNotFound("tenant", tenantID)
	}
	return out, nil
}

func (r *Tenants) CreateCompanyConfig(_ context.Context, cfg *tenant.CompanyConfig) error {
	return r.s.write("tenant.CreateCompanyConfig", func(st *state) error {
		st.companies[cfg.TenantID] = *cfg
		return nil
	})
}

// SetStatus changes a tenant's status.
func (r *Tenants) SetStatus(tenantID id.ID, status tenant.Status) {
	_ = r.s.write("test.SetStatus", func(st *state) error {
		if t, ok := st.tenants[tenantID]; ok {
			t.Status = status
			st.tenants[tenantID] = t
		}
		return nil
	})
}

// Users implements auth.UserRepository.
type Users struct{ s *Store }

func (s *Store) Users() *Users { return &Users{s: s} }

var _ auth.UserRepository = (*Users)(nil)

func (r *Users) Create(_ context.Context, u *auth.User) error {
	return r.s.write("user.Create", func(st *state) error {
		for _, other := range st.users {
			if other.Email == u.Email {
				return apperror.NewDuplicate("user", "email", u.Email)
			}
		}
		st.users[u.ID] = *u
		return nil
	})
}

func (r *Users) GetByID(_ context.Context, tenantID, userID id.ID) (*auth.User, error) {
	var out *auth.User
	r.s.read(func(st *state) {
		if u, ok := st.users[userID]; ok && u.TenantID == tenantID {
			out = &u
		}
	})
	if out == nil {
		return nil, apperror.NewNotFound("user", userID)
	}
	return out, nil
}

func (r *Users) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	var out *auth.User
	r.s.read(func(st *state) {
		for _, u := range st.users {
			if u.Email == email {
				out = &u
				return
			}
		}
	})
	if out == nil {
		return nil, apperror.NewNotFound("user", email)
	}
	return out, nil
}

func (r *Users) UpdateLoginState(_ context.Context, u *auth.User) error {
	return r.s.write("user.UpdateLoginState", func(st *state) error {
		current, ok := st.users[u.ID]
		if !ok {
			return apperror.NewNotFound("user", u.ID)
		}
		current.FailedLoginAttempts = u.FailedLoginAttempts
		current.LockedUntil = u.LockedUntil
		current.LastLoginAt = u.LastLoginAt
		current.UpdatedAt = u.UpdatedAt
		st.users[u.ID] = current
		return nil
	})
}

func (r *Users) List(_ context.Context, tenantID id.ID, filter auth.UserFilter) ([]auth.User, int, error) {
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	var matched []auth.User
	r.s.read(func(st *state) {
		for _, u := range st.users {
			if u.TenantID != tenantID {
				continue
			}
			if search != "" && !strings.Contains(u.Email, search) && !strings.Contains(strings.ToLower(u.Nombre), search) {
				continue
			}
			matched = append(matched, u)
		}
	})
	slices.SortFunc(matched, func(a, b auth.User) int { return cmp.Compare(a.Email, b.Email) })
	total := len(matched)
	if filter.Offset >= total {
		return nil, total, nil
	}
	end := total
	if filter.Limit > 0 {
		end = min(filter.Offset+filter.Limit, total)
	}
	return matched[filter.Offset:end], total, nil
}

func (r *Users) CountWithRole(_ context.Context, tenantID, roleID id.ID) (int, error) {
	var n int
	r.s.read(func(st *state) {
		for _, u := range st.users {
			if u.TenantID == tenantID && u.RoleID != nil && *u.RoleID == roleID {
				n++
			}
		}
	})
	return n, nil
}

// Roles implements auth.RoleRepository.
type Roles struct{ s *Store }

func (s *Store) Roles() *Roles { return &Roles{s: s} }

var _ auth.RoleRepository = (*Roles)(nil)

func (r *Roles) Create(_ context.Context, role *auth.Role) error {
	return r.s.write("role.Create", func(st *state) error {
		for _, other := range st.roles {
			if other.TenantID == role.TenantID && strings.EqualFold(other.Name, role.Name) {
				return apperror.NewDuplicate("role", "name", role.Name)
			}
		}
		v := *role
		v.Permissions = slices.Clone(role.Permissions)
		st.roles[role.ID] = v
		return nil
	})
}

func (r *Roles) GetByID(_ context.Context, tenantID, roleID id.ID) (*auth.Role, error) {
	var out *auth.Role
	r.s.read(func(st *state) {
		if v, ok := st.roles[roleID]; ok && v.TenantID == tenantID {
			v.Permissions = slices.Clone(v.Permissions)
			out = &v
		}
	})
	if out == nil {
		return nil, apperror.NewNotFound("role", roleID)
	}
	return out, nil
}

func (r *Roles) Update(_ context.Context, role *auth.Role) error {
	return r.s.write("role.Update", func(st *state) error {
		current, ok := st.roles[role.ID]
		if !ok || current.TenantID != role.TenantID {
			return apperror.NewNotFound("role", role.ID)
		}
		for _, other := range st.roles {
			if other.ID != role.ID && other.TenantID == role.TenantID && strings.EqualFold(other.Name, role.Name) {
				return apperror.NewDuplicate("role", "name", role.Name)
			}
		}
		v := *role
		v.Permissions = slices.Clone(role.Permissions)
		st.roles[role.ID] = v
		return nil
	})
}

func (r *Roles) Delete(_ context.Context, tenantID, roleID id.ID) error {
	return r.s.write("role.Delete", func(st *state) error {
		v, ok := st.roles[roleID]
		if !ok || v.TenantID != tenantID {
			return apperror.NewNotFound("role", roleID)
		}
		delete(st.roles, roleID)
		return nil
	})
}

func (r *Roles) List(_ context.Context, tenantID id.ID) ([]auth.Role, error) {
	var out []auth.Role
	r.s.read(func(st *state) {
		for _, v := range st.roles {
			if v.TenantID == tenantID {
				v.Permissions = slices.Clone(v.Permissions)
				out = append(out, v)
			}
		}
	})
	slices.SortFunc(out, func(a, b auth.Role) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

// Tokens implements auth.TokenRepository.
type Tokens struct{ s *Store }

func (s *Store) Tokens() *Tokens { return &Tokens{s: s} }

var _ auth.TokenRepository = (*Tokens)(nil)

func (r *Tokens) SaveRefreshToken(_ context.Context, t *auth.RefreshToken) error {
	return r.s.write("token.Save", func(st *state) error {
		st.tokens[t.ID] = *t
		return nil
	})
}

func (r *Tokens) GetRefreshToken(_ context.Context, tokenHash string) (*auth.RefreshToken, error) {
	var out *auth.RefreshToken
	r.s.read(func(st *state) {
		for _, t := range st.tokens {
			if t.TokenHash == tokenHash {
				out = &t
				return
			}
		}
	})
	if out == nil {
		return nil, apperror.NewNotFound("refresh token", "")
	}
	return out, nil
}

func (r *Tokens) RevokeRefreshToken(_ context.Context, tokenID id.ID, reason string) error {
	return r.s.write("token.Revoke", func(st *state) error {
		if t, ok := st.tokens[tokenID]; ok && t.RevokedAt == nil {
			now := time.Now()
			t.RevokedAt = &now
			t.RevokedReason = &reason
			st.tokens[tokenID] = t
		}
		return nil
	})
}

func (r *Tokens) RevokeAllUserTokens(_ context.Context, userID id.ID, reason string) error {
	return r.s.write("token.RevokeAll", func(st *state) error {
		now := time.Now()
		for k, t := range st.tokens {
			if t.UserID == userID && t.RevokedAt == nil {
				t.RevokedAt = &now
				t.RevokedReason = &reason
				st.tokens[k] = t
			}
		}
		return nil
	})
}

func (r *Tokens) CleanupExpiredTokens(_ context.Context, before time.Time) (int64, error) {
	var n int64
	err := r.s.write("token.Cleanup", func(st *state) error {
		for k, t := range st.tokens {
			if t.ExpiresAt.Before(before) {
				delete(st.tokens, k)
				n++
			}
		}
		return nil
	})
	return n, err
}
