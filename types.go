package kvauth

import "github.com/MrEthical07/kvauth/model"

// Record types persisted by the adapter. See package model for field semantics.
type (
	User              = model.User
	Account           = model.Account
	AccountRef        = model.AccountRef
	AccountType       = model.AccountType
	Session           = model.Session
	SessionAndUser    = model.SessionAndUser
	VerificationToken = model.VerificationToken
)

// Account types.
const (
	AccountTypeOAuth    = model.AccountOAuth
	AccountTypeOIDC     = model.AccountOIDC
	AccountTypeEmail    = model.AccountEmail
	AccountTypeWebAuthn = model.AccountWebAuthn
)
