package shared

// Capabilities gated by role.
const (
	CapRead        = "read"
	CapMasterWrite = "master.write"
	CapLedgerWrite = "ledger.write"
)

var roleCapabilities = map[Role][]string{
	RoleAdmin:      {CapRead, CapMasterWrite, CapLedgerWrite},
	RoleController: {CapRead, CapMasterWrite, CapLedgerWrite},
	RoleAccountant: {CapRead, CapMasterWrite, CapLedgerWrite},
	RoleManager:    {CapRead, CapMasterWrite},
	RoleUser:       {CapRead},
}

// Can reports whether the role holds the capability.
func (r Role) Can(capability string) bool {
	for _, c := range roleCapabilities[r] {
		if c == capability {
			return true
		}
	}
	return false
}

// Authorize returns ErrForbidden when the identity lacks the capability.
func Authorize(op string, id Identity, capability string) error {
	if id.Role.Can(capability) {
		return nil
	}
	return E(KindForbidden, op, "role", id.UserID).Withf("role %q lacks %s", id.Role, capability)
}
