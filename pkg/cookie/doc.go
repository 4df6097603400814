// Package cookie stores small secrets, such as the session access token, in
// encrypted HttpOnly cookies.
//
//	m, err := cookie.NewFromConfig(cfg)
//	if err != nil {
//		return err
//	}
//	_ = m.SetEncrypted(w, "accountkit_session", token)
//	token, err := m.GetEncrypted(r, "accountkit_session")
//
// Listing a new secret first in COOKIE_SECRETS rotates keys without
// invalidating cookies written with the older ones.
package cookie
