package token

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/tranche-vault/pkg/solana"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrInvalidTokenAccount = errors.New("invalid token account")
	ErrInvalidMint         = errors.New("invalid mint")
)

// Client reads token program state through a Solana RPC client.
type Client struct {
	sc solana.Client
}

func NewClient(sc solana.Client) *Client {
	return &Client{sc: sc}
}

// GetAccount returns the token account at address. ErrInvalidTokenAccount is
// returned when the account isn't an initialized token account for mint.
func (c *Client) GetAccount(address, mint ed25519.PublicKey, commitment solana.Commitment) (*Account, error) {
	data, err := c.programData(address, commitment)
	if err != nil {
		return nil, err
	}

	var account Account
	if !account.Unmarshal(data) || account.State == AccountStateUninitialized || !bytes.Equal(account.Mint, mint) {
		return nil, ErrInvalidTokenAccount
	}
	return &account, nil
}

// GetMint returns the initialized mint at address.
func (c *Client) GetMint(address ed25519.PublicKey, commitment solana.Commitment) (*Mint, error) {
	data, err := c.programData(address, commitment)
	switch {
	case errors.Is(err, ErrInvalidTokenAccount):
		return nil, ErrInvalidMint
	case err != nil:
		return nil, err
	}

	var mint Mint
	if !mint.Unmarshal(data) || !mint.IsInitialized {
		return nil, ErrInvalidMint
	}
	return &mint, nil
}

func (c *Client) programData(address ed25519.PublicKey, commitment solana.Commitment) ([]byte, error) {
	info, err := c.sc.GetAccountInfo(address, commitment)
	switch {
	case errors.Is(err, solana.ErrNoAccountInfo):
		return nil, ErrAccountNotFound
	case err != nil:
		return nil, errors.Wrap(err, "failed to get account info")
	case !bytes.Equal(info.Owner, ProgramKey):
		return nil, ErrInvalidTokenAccount
	}
	return info.Data, nil
}
