/*
catalog.go - Master-data cache for one reconciliation or report pass

PURPOSE:
  Turns a CatalogSnapshot into O(1) lookup maps keyed by normalized text.
  A Catalog is built fresh for every operation and never shared between
  operations, so master-data edits are always picked up on the next pass.

LOOKUPS (all keys must already be normalized with Normalize):
  FindCustomer(name)                 customer by name
  FindAccount(customerID, name)      account by name within one customer
  FindTask(accountID, codeOrName)    task by code OR name within one account
  FindLatestIndex(accountID, taskID) conversion index with latest EffectiveFrom
  RosterByIdentifier(key)            employee by masl, employee code, or full name

INDEX SELECTION RULE:
  For one (account, task) pair the index with the greatest EffectiveFrom wins.
  Equal EffectiveFrom: the higher ID wins. EffectiveTo is never consulted.
  The result does not depend on the order indices arrive in.

COLLISIONS:
  Master data is unique by code, not by name. When two entities share a
  normalized key the first one in snapshot order keeps it. For tasks, codes
  are indexed before names; for the roster, masl codes before employee codes
  before full names.

SEE ALSO:
  - conversion.go: Uses FindLatestIndex
  - validate.go: Uses FindCustomer / FindAccount
  - aggregate.go: Uses RosterByIdentifier
*/
package productivity

import (
	"sort"
)

type accountKey struct {
	customer CustomerID
	name     string
}

type taskKey struct {
	account AccountID
	key     string
}

type pairKey struct {
	account AccountID
	task    TaskID
}

// Catalog is a read-only snapshot of master data.
type Catalog struct {
	customers map[string]Customer
	accounts  map[accountKey]Account
	tasks     map[taskKey]Task
	indices   map[pairKey]ConversionIndex
	roster    map[string]RosterEntry

	customersByID map[CustomerID]Customer
	accountsByID  map[AccountID]Account
	rosterList    []RosterEntry
}

// NewCatalog indexes a snapshot.
func NewCatalog(s CatalogSnapshot) *Catalog {
	c := &Catalog{
		customers:     make(map[string]Customer, len(s.Customers)),
		accounts:      make(map[accountKey]Account, len(s.Accounts)),
		tasks:         make(map[taskKey]Task, 2*len(s.Tasks)),
		indices:       make(map[pairKey]ConversionIndex, len(s.Indices)),
		roster:        make(map[string]RosterEntry, 3*len(s.Roster)),
		customersByID: make(map[CustomerID]Customer, len(s.Customers)),
		accountsByID:  make(map[AccountID]Account, len(s.Accounts)),
		rosterList:    append([]RosterEntry(nil), s.Roster...),
	}

	for _, cu := range s.Customers {
		putFirst(c.customers, Normalize(cu.Name), cu)
		c.customersByID[cu.ID] = cu
	}
	for _, a := range s.Accounts {
		putFirst(c.accounts, accountKey{a.CustomerID, Normalize(a.Name)}, a)
		c.accountsByID[a.ID] = a
	}
	for _, t := range s.Tasks {
		putFirst(c.tasks, taskKey{t.AccountID, Normalize(t.Code)}, t)
	}
	for _, t := range s.Tasks {
		putFirst(c.tasks, taskKey{t.AccountID, Normalize(t.Name)}, t)
	}
	for _, idx := range s.Indices {
		k := pairKey{idx.AccountID, idx.TaskID}
		if cur, ok := c.indices[k]; !ok || supersedes(idx, cur) {
			c.indices[k] = idx
		}
	}
	for _, e := range s.Roster {
		putFirst(c.roster, Normalize(e.SecondaryCode), e)
	}
	for _, e := range s.Roster {
		putFirst(c.roster, Normalize(e.EmployeeCode), e)
	}
	for _, e := range s.Roster {
		putFirst(c.roster, Normalize(e.FullName), e)
	}
	return c
}

// putFirst stores v under a non-empty key unless the key is taken.
func putFirst[K comparable, V any](m map[K]V, k K, v V) {
	var zero K
	if k == zero {
		return
	}
	if _, ok := m[k]; ok {
		return
	}
	m[k] = v
}

// supersedes reports whether candidate replaces current for the same pair.
func supersedes(candidate, current ConversionIndex) bool {
	if candidate.EffectiveFrom.After(current.EffectiveFrom) {
		return true
	}
	return candidate.EffectiveFrom.Equal(current.EffectiveFrom) && candidate.ID > current.ID
}

// =============================================================================
// LOOKUPS
// =============================================================================

func (c *Catalog) FindCustomer(name string) (Customer, bool) {
	cu, ok := c.customers[name]
	return cu, ok
}

// CustomerByID returns the customer that owns an account.
func (c *Catalog) CustomerByID(id CustomerID) (Customer, bool) {
	cu, ok := c.customersByID[id]
	return cu, ok
}

func (c *Catalog) FindAccount(customerID CustomerID, name string) (Account, bool) {
	a, ok := c.accounts[accountKey{customerID, name}]
	return a, ok
}

func (c *Catalog) FindTask(accountID AccountID, codeOrName string) (Task, bool) {
	t, ok := c.tasks[taskKey{accountID, codeOrName}]
	return t, ok
}

func (c *Catalog) FindLatestIndex(accountID AccountID, taskID TaskID) (ConversionIndex, bool) {
	idx, ok := c.indices[pairKey{accountID, taskID}]
	return idx, ok
}

func (c *Catalog) RosterByIdentifier(key string) (RosterEntry, bool) {
	if key == "" {
		return RosterEntry{}, false
	}
	e, ok := c.roster[key]
	return e, ok
}

// Roster returns every roster entry in snapshot order.
func (c *Catalog) Roster() []RosterEntry {
	return c.rosterList
}

// IndexedAccounts returns accounts that have at least one conversion index,
// sorted by name then ID.
func (c *Catalog) IndexedAccounts() []Account {
	seen := make(map[AccountID]bool)
	var out []Account
	for k := range c.indices {
		if seen[k.account] {
			continue
		}
		seen[k.account] = true
		if a, ok := c.accountsByID[k.account]; ok {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}
