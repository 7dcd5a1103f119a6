package aggregation

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"moneta/internal/domain/secret"
	"moneta/internal/infrastructure/simplefin"
)

// SimpleFIN adapts the SimpleFIN bridge protocol. One access URL is
// the whole credential; a single call returns every account with its
// transactions embedded.
type SimpleFIN struct {
	client  *simplefin.Client
	secrets secret.Store
}

func NewSimpleFIN(client *simplefin.Client, secrets secret.Store) *SimpleFIN {
	return &SimpleFIN{client: client, secrets: secrets}
}

func (a *SimpleFIN) Name() string { return "simplefin" }

func (a *SimpleFIN) accessURL(ctx context.Context) (string, error) {
	accessURL, err := a.secrets.Get(ctx, secret.SimpleFINAccessKey)
	if err != nil {
		return "", err
	}
	if accessURL == "" {
		return "", &MissingCredentialError{Name: secret.SimpleFINAccessKey}
	}
	return accessURL, nil
}

func (a *SimpleFIN) Status(ctx context.Context) (Status, error) {
	accessURL, err := a.secrets.Get(ctx, secret.SimpleFINAccessKey)
	if err != nil {
		return Status{}, err
	}
	return Status{Configured: accessURL != ""}, nil
}

func (a *SimpleFIN) Accounts(ctx context.Context) ([]AccountInfo, error) {
	accessURL, err := a.accessURL(ctx)
	if err != nil {
		return nil, err
	}

	set, err := a.client.GetAccounts(ctx, accessURL, "")
	if err != nil {
		return nil, err
	}

	infos := make([]AccountInfo, 0, len(set.Accounts))
	for _, acc := range set.Accounts {
		balance, err := decimal.NewFromString(acc.Balance)
		if err != nil {
			return nil, fmt.Errorf("%w: bad balance %q for account %s", ErrInvalidResponse, acc.Balance, acc.ID)
		}
		name := acc.Name
		if acc.Org.Name != "" {
			name = acc.Org.Name + " " + acc.Name
		}
		infos = append(infos, AccountInfo{
			ExternalID: acc.ID,
			Name:       name,
			Balance:    balance,
			Currency:   acc.Currency,
		})
	}
	return infos, nil
}

// Transactions flattens the embedded per-account transactions into one
// sequence, in the order the bridge reports them.
func (a *SimpleFIN) Transactions(ctx context.Context, q Query) ([]Record, error) {
	accessURL, err := a.accessURL(ctx)
	if err != nil {
		return nil, err
	}

	set, err := a.client.GetAccounts(ctx, accessURL, q.StartDate)
	if err != nil {
		return nil, err
	}

	var records []Record
	for _, acc := range set.Accounts {
		for _, tx := range acc.Transactions {
			if tx.Pending {
				continue
			}
			amount, err := decimal.NewFromString(tx.Amount)
			if err != nil {
				return nil, fmt.Errorf("%w: bad amount %q for transaction %s", ErrInvalidResponse, tx.Amount, tx.ID)
			}
			records = append(records, Record{
				ExternalID: tx.ID,
				Date:       civilDate(time.Unix(tx.Posted, 0)),
				PayeeName:  tx.Description,
				Amount:     amount,
				Kind:       KindCash,
				Booked:     true,
			})
		}
	}
	return records, nil
}
