package authz

import "fmt"

// RoleSeed 预置角色
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds 系统预置角色矩阵
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: "readonly_auditor",
			Policies: []Policy{
				{Object: "/admin/*", Action: "GET"},
			},
		},
		{
			Role:     "content_editor",
			Inherits: []string{"readonly_auditor"},
			Policies: []Policy{
				{Object: "/admin/content", Action: "*"},
				{Object: "/admin/content/:id", Action: "*"},
				{Object: "/admin/templates", Action: "*"},
				{Object: "/admin/templates/:id", Action: "*"},
			},
		},
		{
			Role:     "campaign_operator",
			Inherits: []string{"readonly_auditor"},
			Policies: []Policy{
				{Object: "/admin/campaigns", Action: "*"},
				{Object: "/admin/campaigns/:id", Action: "*"},
				{Object: "/admin/campaigns/:id/send", Action: "POST"},
				{Object: "/admin/aliases", Action: "*"},
				{Object: "/admin/aliases/:id", Action: "*"},
				{Object: "/admin/aliases/:id/send-verification", Action: "POST"},
				{Object: "/admin/aliases/:id/verify", Action: "POST"},
				{Object: "/admin/credentials", Action: "*"},
				{Object: "/admin/credentials/:id", Action: "*"},
				{Object: "/admin/credentials/:id/test", Action: "POST"},
				{Object: "/admin/templates", Action: "GET"},
				{Object: "/admin/email/test", Action: "POST"},
			},
		},
	}
}

// BootstrapBuiltinRoles 写入预置角色、继承关系与策略，可重复执行
func (s *Service) BootstrapBuiltinRoles() error {
	if err := s.ready(); err != nil {
		return err
	}
	for _, seed := range BuiltinRoleSeeds() {
		role, err := s.EnsureRole(seed.Role)
		if err != nil {
			return fmt.Errorf("builtin role %s: %w", seed.Role, err)
		}
		for _, parent := range seed.Inherits {
			parentRole, err := s.EnsureRole(parent)
			if err != nil {
				return fmt.Errorf("builtin parent %s: %w", parent, err)
			}
			if _, err := s.addGrouping(role, parentRole); err != nil {
				return fmt.Errorf("link %s to %s: %w", role, parentRole, err)
			}
		}
		for _, policy := range seed.Policies {
			act := NormalizeAction(policy.Action)
			if act == "" {
				return fmt.Errorf("builtin role %s: %w", seed.Role, ErrActionRequired)
			}
			if _, err := s.enforcer.AddPolicy(role, NormalizeObject(policy.Object), act); err != nil {
				return fmt.Errorf("add builtin policy for %s: %w", role, err)
			}
		}
	}
	return nil
}
