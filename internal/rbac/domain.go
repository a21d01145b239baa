package rbac

import "github.com/labportal/reagent-portal/internal/shared"

// Permission represents an atomic capability.
type Permission struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Grant lists the permissions carried by a role.
type Grant struct {
	Role        shared.Role `json:"role"`
	Permissions []string    `json:"permissions"`
}

var descriptions = map[string]string{
	shared.PermCatalogView:       "Browse the product catalog",
	shared.PermCatalogEdit:       "Create, update and delete products",
	shared.PermPricingEdit:       "Set per-customer fixed prices",
	shared.PermCustomersView:     "View customer accounts",
	shared.PermCustomersEdit:     "Create and edit customer accounts",
	shared.PermOrdersOwn:         "Place and progress own orders",
	shared.PermOrdersManage:      "Override status and delete any order",
	shared.PermAnnouncementsView: "Read active announcements",
	shared.PermAnnouncementsEdit: "Publish and deactivate announcements",
	shared.PermDashboardView:     "View the admin dashboard",
	shared.PermExportRun:         "Download CSV snapshots",
	shared.PermAuditView:         "Read the audit trail",
}
