package shared

// Portal permissions.
const (
	PermCatalogView = "catalog.view"
	PermCatalogEdit = "catalog.edit"

	PermPricingEdit = "pricing.edit"

	PermCustomersView = "customers.view"
	PermCustomersEdit = "customers.edit"

	PermOrdersOwn    = "orders.own"
	PermOrdersManage = "orders.manage"

	PermAnnouncementsView = "announcements.view"
	PermAnnouncementsEdit = "announcements.edit"

	PermDashboardView = "dashboard.view"
	PermExportRun     = "export.run"
	PermAuditView     = "audit.view"
)

// CustomerScopes lists the permissions granted to customer accounts.
func CustomerScopes() []string {
	return []string{
		PermCatalogView,
		PermOrdersOwn,
		PermAnnouncementsView,
	}
}

// AdminScopes lists every permission; the admin account holds all of them.
func AdminScopes() []string {
	return append(CustomerScopes(),
		PermCatalogEdit,
		PermPricingEdit,
		PermCustomersView,
		PermCustomersEdit,
		PermOrdersManage,
		PermAnnouncementsEdit,
		PermDashboardView,
		PermExportRun,
		PermAuditView,
	)
}
