package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/smallbiznis/parcella/internal/authcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectProfile     = "profile"
	ObjectPatient     = "patient"
	ObjectCatalog     = "catalog"
	ObjectInvoice     = "invoice"
	ObjectCalendar    = "calendar"
	ObjectPlan        = "plan"
	ObjectTicket      = "ticket"
	ObjectAdminTicket = "admin_ticket"
	ObjectAdminStats  = "admin_stats"
)

const (
	ActionView   = "view"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"

	ActionInvoiceRender = "invoice.render"
	ActionInvoicePay    = "invoice.pay"
	ActionInvoiceCancel = "invoice.cancel"
	ActionInvoiceSend   = "invoice.send"

	ActionPlanChange = "plan.change"

	ActionTicketReply  = "ticket.reply"
	ActionTicketStatus = "ticket.status"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	return newEnforcer(adapter)
}

// NewMemoryEnforcer builds an enforcer holding only the seeded policy, without
// persistence.
func NewMemoryEnforcer() (*casbin.SyncedEnforcer, error) {
	return newEnforcer(nil)
}

func newEnforcer(adapter any) (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	var enforcer *casbin.SyncedEnforcer
	if adapter == nil {
		enforcer, err = casbin.NewSyncedEnforcer(m)
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m, adapter)
	}
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(adapter != nil)
	enforcer.EnableAutoBuildRoleLinks(true)
	if adapter != nil {
		if err := enforcer.LoadPolicy(); err != nil {
			return nil, err
		}
	}
	if err := SeedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, object string, action string) error {
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	principal, ok := authcontext.FromContext(ctx)
	if !ok || principal.UserID == 0 {
		return ErrInvalidActor
	}
	role := strings.ToLower(strings.TrimSpace(principal.Role))
	if role == "" {
		return ErrInvalidActor
	}

	allowed, err := s.enforcer.Enforce(roleSubject(role), object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Info("authorization denied",
			zap.String("user_id", principal.UserID.String()),
			zap.String("role", role),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func roleSubject(role string) string {
	return fmt.Sprintf("role:%s", role)
}

// SeedPolicies adds the default role policy. Existing rules are left untouched.
func SeedPolicies(enforcer *casbin.SyncedEnforcer) error {
	professional := roleSubject(authcontext.RoleProfessional)
	admin := roleSubject(authcontext.RoleAdmin)

	policies := [][]string{
		{professional, ObjectProfile, ActionView},
		{professional, ObjectProfile, ActionUpdate},

		{professional, ObjectPatient, ActionView},
		{professional, ObjectPatient, ActionCreate},
		{professional, ObjectPatient, ActionUpdate},
		{professional, ObjectPatient, ActionDelete},

		{professional, ObjectCatalog, ActionView},
		{professional, ObjectCatalog, ActionCreate},
		{professional, ObjectCatalog, ActionUpdate},
		{professional, ObjectCatalog, ActionDelete},

		{professional, ObjectInvoice, ActionView},
		{professional, ObjectInvoice, ActionCreate},
		{professional, ObjectInvoice, ActionInvoiceRender},
		{professional, ObjectInvoice, ActionInvoicePay},
		{professional, ObjectInvoice, ActionInvoiceCancel},
		{professional, ObjectInvoice, ActionInvoiceSend},

		{professional, ObjectCalendar, "*"},

		{professional, ObjectPlan, ActionView},
		{professional, ObjectPlan, ActionPlanChange},

		{professional, ObjectTicket, ActionView},
		{professional, ObjectTicket, ActionCreate},
		{professional, ObjectTicket, ActionTicketReply},
		{professional, ObjectTicket, ActionTicketStatus},

		{admin, ObjectAdminTicket, ActionView},
		{admin, ObjectAdminTicket, ActionTicketReply},
		{admin, ObjectAdminTicket, ActionTicketStatus},
		{admin, ObjectAdminStats, ActionView},
	}

	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}

	// Admins can use the professional surface too.
	has, err := enforcer.HasGroupingPolicy(admin, professional)
	if err != nil {
		return err
	}
	if !has {
		if _, err := enforcer.AddGroupingPolicy(admin, professional); err != nil {
			return err
		}
	}
	return nil
}
