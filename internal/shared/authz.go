package shared

// Inventory permissions.
const (
	PermProductsView   = "products.view"
	PermProductsEdit   = "products.edit"
	PermProductsDelete = "products.delete"

	PermQRGenerate = "qr.generate"

	PermTemplatesView = "templates.view"
	PermTemplatesEdit = "templates.edit"

	PermUsersEdit = "users.edit"

	PermActivityView = "activity.view"
	PermJobsView     = "jobs.view"
)

// AllScopes lists every permission known to the application.
func AllScopes() []string {
	return []string{
		PermProductsView,
		PermProductsEdit,
		PermProductsDelete,
		PermQRGenerate,
		PermTemplatesView,
		PermTemplatesEdit,
		PermUsersEdit,
		PermActivityView,
		PermJobsView,
	}
}

// StaffScopes lists the permissions granted to shop floor staff.
func StaffScopes() []string {
	return []string{
		PermProductsView,
		PermProductsEdit,
		PermTemplatesView,
	}
}
