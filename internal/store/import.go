package store

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/redmi6provk-cell/tira-order-auto/internal/domain"
	"gopkg.in/yaml.v3"
)

// seedFile is the on-disk shape of an account seed file.
type seedFile struct {
	Accounts  []seedAccount    `yaml:"accounts"`
	Addresses []domain.Address `yaml:"addresses"`
	Cards     []seedCard       `yaml:"cards"`
}

type seedAccount struct {
	Name    string `yaml:"name"`
	Email   string `yaml:"email"`
	Phone   string `yaml:"phone"`
	Cookies any    `yaml:"cookies"`
	Active  *bool  `yaml:"active"`
}

type seedCard struct {
	ID   string      `yaml:"id"`
	Bank string      `yaml:"bank"`
	Card domain.Card `yaml:",inline"`
}

// ImportSeed loads accounts, addresses and cards from a YAML seed file.
// Returns the number of accounts inserted.
func (s *Store) ImportSeed(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return 0, fmt.Errorf("parsing seed file: %w", err)
	}

	inserted := 0
	for i, sa := range seed.Accounts {
		var cookies json.RawMessage
		if sa.Cookies != nil {
			raw, err := json.Marshal(sa.Cookies)
			if err != nil {
				return inserted, fmt.Errorf("account %d: encoding cookies: %w", i, err)
			}
			cookies = raw
		}

		active := true
		if sa.Active != nil {
			active = *sa.Active
		}

		if _, err := s.InsertAccount(&domain.Account{
			Name:    sa.Name,
			Email:   sa.Email,
			Phone:   sa.Phone,
			Cookies: cookies,
			Status:  domain.AccountUnknown,
			Active:  active,
		}); err != nil {
			return inserted, fmt.Errorf("account %d: %w", i, err)
		}
		inserted++
	}

	for i := range seed.Addresses {
		if err := s.UpsertAddress(&seed.Addresses[i]); err != nil {
			return inserted, fmt.Errorf("address %d: %w", i, err)
		}
	}
	for i, sc := range seed.Cards {
		if err := s.UpsertCard(sc.ID, &sc.Card, sc.Bank); err != nil {
			return inserted, fmt.Errorf("card %d: %w", i, err)
		}
	}

	return inserted, nil
}
