package types

// Deal statuses. Archived deals stay readable but drop out of the default
// list view.
const (
	DealStatusActive   = "active"
	DealStatusArchived = "archived"
)

type Deal struct {
	DealUUID             string              `json:"id"`
	OwnerName            string              `json:"owner_name"`
	Name                 string              `json:"name"`
	PropertyAddress      string              `json:"property_address"`
	BuyerName            string              `json:"buyer_name"`
	SellerName           string              `json:"seller_name"`
	BindingAgreementDate *string             `json:"binding_agreement_date"`
	Status               string              `json:"status"`
	CreatedAt            string              `json:"created_at"`
	UpdatedAt            string              `json:"updated_at"`
	ManualEntry          *ManualEntryPayload `json:"manual_entry"`
	Overrides            OverrideSet         `json:"overrides"`
	Events               []DerivedEvent      `json:"events"`
	Tasks                []DerivedTask       `json:"tasks"`
	InfoItems            []DerivedInfoItem   `json:"info_items"`
}

// DealUpdate carries the mutable top-level fields for a metadata edit.
// Nil members are left untouched.
type DealUpdate struct {
	Name                 *string `json:"name"`
	PropertyAddress      *string `json:"property_address"`
	BuyerName            *string `json:"buyer_name"`
	SellerName           *string `json:"seller_name"`
	BindingAgreementDate *string `json:"binding_agreement_date"`
	Status               *string `json:"status"`
}
