package aggregation

import (
	"context"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"moneta/internal/domain/secret"
	"moneta/internal/infrastructure/pluggyai"
)

// Pluggy adapts the Pluggy bank-aggregation API. Client credentials
// are exchanged for a short-lived API key on every operation; item ids
// (one per connected bank) are stored as a comma-separated secret.
type Pluggy struct {
	client  *pluggyai.Client
	secrets secret.Store
}

func NewPluggy(client *pluggyai.Client, secrets secret.Store) *Pluggy {
	return &Pluggy{client: client, secrets: secrets}
}

func (a *Pluggy) Name() string { return "pluggyai" }

func (a *Pluggy) credentials(ctx context.Context) (clientID, clientSecret string, err error) {
	clientID, err = a.secrets.Get(ctx, secret.PluggyClientID)
	if err != nil {
		return "", "", err
	}
	if clientID == "" {
		return "", "", &MissingCredentialError{Name: secret.PluggyClientID}
	}
	clientSecret, err = a.secrets.Get(ctx, secret.PluggyClientSecret)
	if err != nil {
		return "", "", err
	}
	if clientSecret == "" {
		return "", "", &MissingCredentialError{Name: secret.PluggyClientSecret}
	}
	return clientID, clientSecret, nil
}

func (a *Pluggy) authorize(ctx context.Context) (string, error) {
	clientID, clientSecret, err := a.credentials(ctx)
	if err != nil {
		return "", err
	}
	return a.client.Authorize(ctx, clientID, clientSecret)
}

// itemIDs returns the connected bank item ids. An empty list is a
// valid state (nothing connected yet), not an error.
func (a *Pluggy) itemIDs(ctx context.Context) ([]string, error) {
	raw, err := a.secrets.Get(ctx, secret.PluggyItemIDs)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (a *Pluggy) Status(ctx context.Context) (Status, error) {
	clientID, err := a.secrets.Get(ctx, secret.PluggyClientID)
	if err != nil {
		return Status{}, err
	}
	clientSecret, err := a.secrets.Get(ctx, secret.PluggyClientSecret)
	if err != nil {
		return Status{}, err
	}
	return Status{Configured: clientID != "" && clientSecret != ""}, nil
}

// Accounts lists every account across connected items. The balance of
// a BANK account is the closing balance plus the automatically
// invested balance; other types report the plain balance field.
func (a *Pluggy) Accounts(ctx context.Context) ([]AccountInfo, error) {
	apiKey, err := a.authorize(ctx)
	if err != nil {
		return nil, err
	}
	items, err := a.itemIDs(ctx)
	if err != nil {
		return nil, err
	}

	var infos []AccountInfo
	for _, itemID := range items {
		accounts, err := a.client.GetAccounts(ctx, apiKey, itemID)
		if err != nil {
			return nil, err
		}
		for _, acc := range accounts {
			infos = append(infos, AccountInfo{
				ExternalID: acc.ID,
				Name:       acc.Name,
				Balance:    pluggyBalance(acc),
				Currency:   acc.CurrencyCode,
			})
		}
	}
	return infos, nil
}

// Transactions walks every transaction page of every account across
// connected items. Pending transactions are dropped; amounts come back
// unsigned with a direction flag, so debits are negated here.
func (a *Pluggy) Transactions(ctx context.Context, q Query) ([]Record, error) {
	apiKey, err := a.authorize(ctx)
	if err != nil {
		return nil, err
	}
	items, err := a.itemIDs(ctx)
	if err != nil {
		return nil, err
	}

	var records []Record
	for _, itemID := range items {
		accounts, err := a.client.GetAccounts(ctx, apiKey, itemID)
		if err != nil {
			return nil, err
		}
		for _, acc := range accounts {
			txns, err := a.client.GetTransactions(ctx, apiKey, acc.ID, q.StartDate)
			if err != nil {
				return nil, err
			}
			for _, tx := range txns {
				if tx.Status == "PENDING" {
					continue
				}
				date, err := parseCivilDate(tx.Date)
				if err != nil {
					return nil, err
				}
				amount := decimal.NewFromFloat(math.Abs(tx.Amount))
				if tx.Type == "DEBIT" {
					amount = amount.Neg()
				}
				records = append(records, Record{
					ExternalID: tx.ID,
					Date:       date,
					PayeeName:  tx.Description,
					Amount:     amount,
					Kind:       KindCash,
					Booked:     true,
				})
			}
		}
	}
	return records, nil
}

func pluggyBalance(acc pluggyai.Account) decimal.Decimal {
	if acc.Type == "BANK" && acc.BankData != nil {
		return decimal.NewFromFloat(acc.BankData.ClosingBalance).
			Add(decimal.NewFromFloat(acc.BankData.AutomaticallyInvestedBalance))
	}
	return decimal.NewFromFloat(acc.Balance)
}
