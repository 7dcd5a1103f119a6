package aggregation

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"moneta/internal/domain/secret"
	"moneta/internal/infrastructure/trading212"
)

// usdTickerSuffix marks instruments priced in USD on Trading 212.
// Positions carrying it are converted into the ledger currency; every
// other position passes through unchanged.
const usdTickerSuffix = "_US_EQ"

// Trading212 adapts the Trading 212 brokerage API. Four record kinds
// map from four endpoints: cash transactions, portfolio positions,
// filled orders and dividends.
//
// Only portfolio values go through the currency converter. Order and
// dividend amounts are taken as reported; dividends already arrive
// with an EUR-converted amount.
type Trading212 struct {
	client  *trading212.Client
	secrets secret.Store
	rates   RateSource
}

func NewTrading212(client *trading212.Client, secrets secret.Store, rates RateSource) *Trading212 {
	return &Trading212{client: client, secrets: secrets, rates: rates}
}

func (a *Trading212) Name() string { return "trading212" }

func (a *Trading212) apiKey(ctx context.Context) (string, error) {
	key, err := a.secrets.Get(ctx, secret.Trading212APIKey)
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", &MissingCredentialError{Name: secret.Trading212APIKey}
	}
	return key, nil
}

func (a *Trading212) Status(ctx context.Context) (Status, error) {
	key, err := a.secrets.Get(ctx, secret.Trading212APIKey)
	if err != nil {
		return Status{}, err
	}
	return Status{Configured: key != ""}, nil
}

func (a *Trading212) Metadata(ctx context.Context) (any, error) {
	key, err := a.apiKey(ctx)
	if err != nil {
		return nil, err
	}
	return a.client.GetAccountInfo(ctx, key)
}

func (a *Trading212) Cash(ctx context.Context) (any, error) {
	key, err := a.apiKey(ctx)
	if err != nil {
		return nil, err
	}
	return a.client.GetCash(ctx, key)
}

// Accounts splits the single cash snapshot into two derived
// pseudo-accounts: cash free for new orders and cash committed to open
// orders.
func (a *Trading212) Accounts(ctx context.Context) ([]AccountInfo, error) {
	key, err := a.apiKey(ctx)
	if err != nil {
		return nil, err
	}

	info, err := a.client.GetAccountInfo(ctx, key)
	if err != nil {
		return nil, err
	}
	cash, err := a.client.GetCash(ctx, key)
	if err != nil {
		return nil, err
	}

	return []AccountInfo{
		{
			ExternalID: "trading212-free-cash",
			Name:       "Free Cash",
			Balance:    decimal.NewFromFloat(cash.Free),
			Currency:   info.CurrencyCode,
		},
		{
			ExternalID: "trading212-blocked-cash",
			Name:       "Cash in Orders",
			Balance:    decimal.NewFromFloat(cash.Blocked),
			Currency:   info.CurrencyCode,
		},
	}, nil
}

// Portfolio maps open positions to investment records. The position
// value is quantity times current price, converted from USD for
// instruments with the USD ticker suffix.
func (a *Trading212) Portfolio(ctx context.Context) ([]Record, error) {
	key, err := a.apiKey(ctx)
	if err != nil {
		return nil, err
	}

	positions, err := a.client.GetPortfolio(ctx, key)
	if err != nil {
		return nil, err
	}

	// The rate is fetched at most once per call, and only when a
	// USD-priced position is present.
	var rate decimal.Decimal
	haveRate := false

	records := make([]Record, 0, len(positions))
	for _, pos := range positions {
		value := decimal.NewFromFloat(pos.Quantity).Mul(decimal.NewFromFloat(pos.CurrentPrice))

		if strings.HasSuffix(pos.Ticker, usdTickerSuffix) {
			if !haveRate {
				rate, err = a.rates.UsdToEurRate(ctx)
				if err != nil {
					return nil, err
				}
				haveRate = true
			}
			value = value.Mul(rate)
		}

		date := civilDate(time.Now())
		if pos.InitialFillDate != "" {
			date, err = parseCivilDate(pos.InitialFillDate)
			if err != nil {
				return nil, err
			}
		}

		records = append(records, Record{
			ExternalID: pos.Ticker,
			Date:       date,
			PayeeName:  pos.Ticker,
			Amount:     value,
			Kind:       KindInvestment,
			Booked:     true,
		})
	}
	return records, nil
}

// Transactions maps the cash movement history (deposits, withdrawals,
// fees) to cash records. Upstream amounts are already signed.
func (a *Trading212) Transactions(ctx context.Context, q Query) ([]Record, error) {
	key, err := a.apiKey(ctx)
	if err != nil {
		return nil, err
	}

	txns, err := a.client.GetTransactions(ctx, key, q.StartDate, q.Limit)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(txns))
	for _, tx := range txns {
		date, err := parseCivilDate(tx.DateTime)
		if err != nil {
			return nil, err
		}
		records = append(records, Record{
			ExternalID: tx.Reference,
			Date:       date,
			PayeeName:  tx.Type,
			Amount:     decimal.NewFromFloat(tx.Amount),
			Kind:       KindCash,
			Booked:     true,
		})
	}
	return records, nil
}

// Orders maps filled orders to order records. A fill is cash paid out,
// so amounts are negated. Orders that never filled carry no value and
// are dropped.
func (a *Trading212) Orders(ctx context.Context, q Query) ([]Record, error) {
	key, err := a.apiKey(ctx)
	if err != nil {
		return nil, err
	}

	orders, err := a.client.GetOrders(ctx, key, q.Limit, q.Ticker)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(orders))
	for _, o := range orders {
		if o.FilledValue == nil {
			continue
		}
		date, err := parseCivilDate(o.DateCreated)
		if err != nil {
			return nil, err
		}
		records = append(records, Record{
			ExternalID: o.FillID,
			Date:       date,
			PayeeName:  o.Ticker,
			Amount:     decimal.NewFromFloat(*o.FilledValue).Neg(),
			Kind:       KindOrder,
			Booked:     true,
		})
	}
	return records, nil
}

// Dividends maps paid dividends to dividend records using the
// EUR-converted amount the upstream already provides.
func (a *Trading212) Dividends(ctx context.Context, q Query) ([]Record, error) {
	key, err := a.apiKey(ctx)
	if err != nil {
		return nil, err
	}

	dividends, err := a.client.GetDividends(ctx, key, q.Limit)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(dividends))
	for _, d := range dividends {
		date, err := parseCivilDate(d.PaidOn)
		if err != nil {
			return nil, err
		}
		if q.StartDate != "" && date < q.StartDate {
			continue
		}
		records = append(records, Record{
			ExternalID: d.Reference,
			Date:       date,
			PayeeName:  d.Ticker,
			Amount:     decimal.NewFromFloat(d.AmountInEuro),
			Kind:       KindDividend,
			Booked:     true,
		})
	}
	return records, nil
}
