package policy

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/good-yellow-bee/incidentdesk/internal/models"
)

// Resource is an API resource guarded by the Authorizer.
type Resource string

const (
	ResourceIncidents   Resource = "incidents"
	ResourceTimeline    Resource = "timeline"
	ResourceTags        Resource = "tags"
	ResourceTemplates   Resource = "templates"
	ResourceActionItems Resource = "action_items"
	ResourceReports     Resource = "reports"
)

// Action is an operation on a Resource.
type Action string

const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionDelete Action = "delete"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

// Rule grants a capability an action on a resource.
type Rule struct {
	Capability Capability
	Resource   Resource
	Action     Action
}

// DefaultRules is the route permission table.
var DefaultRules = []Rule{
	{CapabilityView, ResourceIncidents, ActionRead},
	{CapabilityView, ResourceTimeline, ActionRead},
	{CapabilityView, ResourceTags, ActionRead},
	{CapabilityView, ResourceTemplates, ActionRead},
	{CapabilityView, ResourceActionItems, ActionRead},
	{CapabilityView, ResourceReports, ActionRead},

	{CapabilityEdit, ResourceIncidents, ActionWrite},
	{CapabilityEdit, ResourceTimeline, ActionWrite},
	{CapabilityEdit, ResourceActionItems, ActionWrite},

	{CapabilityAdmin, ResourceIncidents, ActionDelete},
	{CapabilityAdmin, ResourceTags, ActionWrite},
	{CapabilityAdmin, ResourceTags, ActionDelete},
	{CapabilityAdmin, ResourceTemplates, ActionWrite},
	{CapabilityAdmin, ResourceTemplates, ActionDelete},
	{CapabilityAdmin, ResourceActionItems, ActionDelete},
}

// Authorizer decides whether a role may perform an action on a resource.
// Roles are bound to capabilities through the predicates in this package,
// so route checks and capability checks cannot disagree.
type Authorizer struct {
	enforcer *casbin.SyncedEnforcer
}

// NewAuthorizer builds an Authorizer from rules. With no rules it uses
// DefaultRules.
func NewAuthorizer(rules ...Rule) (*Authorizer, error) {
	if len(rules) == 0 {
		rules = DefaultRules
	}

	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("load rbac model: %w", err)
	}
	e, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}

	for _, role := range models.AllRoles() {
		for _, c := range Capabilities(role) {
			if _, err := e.AddGroupingPolicy(role.String(), string(c)); err != nil {
				return nil, fmt.Errorf("bind role %s: %w", role, err)
			}
		}
	}
	for _, rule := range rules {
		if _, err := e.AddPolicy(string(rule.Capability), string(rule.Resource), string(rule.Action)); err != nil {
			return nil, fmt.Errorf("add rule %v: %w", rule, err)
		}
	}

	return &Authorizer{enforcer: e}, nil
}

// Allowed reports whether role may perform action on resource. Unknown
// roles are always denied.
func (a *Authorizer) Allowed(role models.Role, resource Resource, action Action) (bool, error) {
	if !role.Valid() {
		return false, nil
	}
	ok, err := a.enforcer.Enforce(role.String(), string(resource), string(action))
	if err != nil {
		return false, fmt.Errorf("enforce: %w", err)
	}
	return ok, nil
}
