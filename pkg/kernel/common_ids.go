package kernel

// TenantID scopes every cross-boundary call to one customer account.
type TenantID string

func NewTenantID(id string) TenantID { return TenantID(id) }
func (t TenantID) String() string    { return string(t) }
func (t TenantID) IsEmpty() bool     { return string(t) == "" }

// NewsletterID is the external, authoritative key of a newsletter. A
// newsletter can be sent more than once.
type NewsletterID string

func NewNewsletterID(id string) NewsletterID { return NewsletterID(id) }
func (n NewsletterID) String() string        { return string(n) }
func (n NewsletterID) IsEmpty() bool         { return string(n) == "" }

// GroupID correlates every email of one send attempt (the groupUUID).
type GroupID string

func NewGroupID(id string) GroupID { return GroupID(id) }
func (g GroupID) String() string   { return string(g) }
func (g GroupID) IsEmpty() bool    { return string(g) == "" }

// RecipientID identifies a contact on the owning web service.
type RecipientID string

func NewRecipientID(id string) RecipientID { return RecipientID(id) }
func (r RecipientID) String() string       { return string(r) }
func (r RecipientID) IsEmpty() bool        { return string(r) == "" }
