package collection

// Kind names one collection type. Each kind owns its own storage keys and merge policy.
type Kind string

const (
	KindCart     Kind = "cart"
	KindWishlist Kind = "wishlist"
)

// StorageKey is a well-known guest storage key. Guests have no user id, so
// the keys are fixed for the life of the application.
type StorageKey string

const (
	CartKey     StorageKey = "staylook.guest.cart"
	WishlistKey StorageKey = "staylook.guest.wishlist"
)

var localKeys = map[Kind]StorageKey{
	KindCart:     CartKey,
	KindWishlist: WishlistKey,
}

// LocalKey returns the guest storage key registered for k.
func (k Kind) LocalKey() (StorageKey, bool) {
	key, ok := localKeys[k]
	return key, ok
}
