package rbac

import "github.com/bago-furniture/bago-inventory/internal/shared"

// Role names stored on users.role.
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// Role describes a role and the permissions it grants.
type Role struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

// Permission describes a single capability.
type Permission struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

var permissionDescriptions = map[string]string{
	shared.PermProductsView:   "Lihat produk, stok dan hasil scan",
	shared.PermProductsEdit:   "Registrasi dan ubah produk",
	shared.PermProductsDelete: "Hapus produk",
	shared.PermQRGenerate:     "Generate dan unduh label QR",
	shared.PermTemplatesView:  "Lihat template produk",
	shared.PermTemplatesEdit:  "Kelola template produk",
	shared.PermUsersEdit:      "Kelola pengguna",
	shared.PermActivityView:   "Lihat log aktivitas",
	shared.PermJobsView:       "Pantau antrian job",
}

var roles = []Role{
	{Name: RoleAdmin, Description: "Akses penuh", Permissions: shared.AllScopes()},
	{Name: RoleStaff, Description: "Staf toko dan gudang", Permissions: shared.StaffScopes()},
}

// ValidRole reports whether name is a known role.
func ValidRole(name string) bool {
	for _, role := range roles {
		if role.Name == name {
			return true
		}
	}
	return false
}

// PermissionsFor returns the permissions granted to role, nil for unknown roles.
func PermissionsFor(role string) []string {
	for _, r := range roles {
		if r.Name == role {
			return append([]string(nil), r.Permissions...)
		}
	}
	return nil
}
