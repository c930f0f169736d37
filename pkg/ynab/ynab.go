package ynab

import (
	"fmt"

	"github.com/brunomvsouza/ynab.go"
	"github.com/brunomvsouza/ynab.go/api/account"
	"github.com/brunomvsouza/ynab.go/api/budget"
	"github.com/brunomvsouza/ynab.go/api/transaction"
)

// YNABClient wraps the YNAB API client with the calls needed to keep tracking
// accounts in line with brokerage statements.
type YNABClient struct {
	client ynab.ClientServicer
}

// TransactionService wraps the original transaction service
type TransactionService struct {
	original *transaction.Service
}

// AccountService wraps the original account service
type AccountService struct {
	original *account.Service
}

func New(token string) *YNABClient {
	return &YNABClient{
		client: ynab.NewClient(token),
	}
}

func (c *YNABClient) Transaction() *TransactionService {
	return &TransactionService{original: c.client.Transaction()}
}

func (c *YNABClient) Account() *AccountService {
	return &AccountService{original: c.client.Account()}
}

func (c *YNABClient) Budget() *budget.Service {
	return c.client.Budget()
}

// Balance returns the account balance in milliunits.
func (as *AccountService) Balance(budgetID, accountID string) (int64, error) {
	acc, err := as.original.GetAccount(budgetID, accountID)
	if err != nil {
		return 0, fmt.Errorf("failed to get account %s: %w", accountID, err)
	}
	return acc.Balance, nil
}

// List returns the accounts of a budget.
func (as *AccountService) List(budgetID string) ([]*account.Account, error) {
	snapshot, err := as.original.GetAccounts(budgetID, nil)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, nil
	}
	return snapshot.Accounts, nil
}

// CreateTransactions creates multiple transactions in one API call
func (ts *TransactionService) CreateTransactions(budgetID string, payloads []transaction.PayloadTransaction) error {
	if len(payloads) == 0 {
		return nil
	}
	_, err := ts.original.CreateTransactions(budgetID, payloads)
	return err
}

// Balances fetches the balance of every account id.
func (c *YNABClient) Balances(budgetID string, accountIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(accountIDs))
	as := c.Account()
	for _, id := range accountIDs {
		if _, ok := out[id]; ok {
			continue
		}
		b, err := as.Balance(budgetID, id)
		if err != nil {
			return nil, err
		}
		out[id] = b
	}
	return out, nil
}

func (c *YNABClient) CreateTransactions(budgetID string, payloads []transaction.PayloadTransaction) error {
	return c.Transaction().CreateTransactions(budgetID, payloads)
}
