package extract

// Role names the semantic a column carries on the vendor's board layout.
type Role string

const (
	// RoleCompanyTerms: company name with trailing payment-terms text.
	RoleCompanyTerms Role = "company_terms"
	// RoleVehicleLoadID: vehicle-type label concatenated with a 6+ digit
	// load id.
	RoleVehicleLoadID Role = "vehicle_load_id"
	// RoleVehicleMiles: vehicle type stacked above miles via <br>.
	RoleVehicleMiles Role = "vehicle_miles"
	// RolePiecesWeight: piece count stacked above weight via <br>.
	RolePiecesWeight Role = "pieces_weight"
)

// Layout maps column index to role. It is data, not logic: when the vendor
// shuffles columns the fix is a config edit.
type Layout map[int]Role

// DefaultLayout reflects the board rendering observed at the time of
// writing.
func DefaultLayout() Layout {
	return Layout{
		0: RoleCompanyTerms,
		1: RoleVehicleLoadID,
		6: RoleVehicleMiles,
		7: RolePiecesWeight,
	}
}
