package balances

import (
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/bytedance/gopkg/util/xxhash3"
	"github.com/vadiminshakov/walletview/internal/domain"
	"github.com/vadiminshakov/walletview/internal/metrics"
)

// Memo caches the ranked list between calls.
//
// The cache key is a fingerprint of the balances and the priority table. Prices are not part of
// the key: a price change re-enriches the cached ranking but never re-filters or re-sorts it.
type Memo struct {
	mu          sync.Mutex
	fingerprint uint64
	ranked      []RankedBalance
	valid       bool
}

// NewMemo creates an empty Memo.
func NewMemo() *Memo {
	return &Memo{}
}

// Process returns the same result as the package level Process.
func (m *Memo) Process(balances []domain.RawBalance, prices domain.PriceTable, priorities domain.PriorityTable) []domain.EnrichedBalance {
	return Enrich(m.rank(balances, priorities), prices)
}

func (m *Memo) rank(balances []domain.RawBalance, priorities domain.PriorityTable) []RankedBalance {
	fp := Fingerprint(balances, priorities)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.valid && m.fingerprint == fp {
		metrics.CollectMemoLookup(true)
		return m.ranked
	}

	metrics.CollectMemoLookup(false)
	m.ranked = Rank(balances, priorities)
	m.fingerprint = fp
	m.valid = true

	return m.ranked
}

// Reset drops the cached ranking.
func (m *Memo) Reset() {
	m.mu.Lock()
	m.valid = false
	m.ranked = nil
	m.mu.Unlock()
}

// Fingerprint hashes the content of balances and priorities.
func Fingerprint(balances []domain.RawBalance, priorities domain.PriorityTable) uint64 {
	var sb strings.Builder
	for _, b := range balances {
		sb.WriteString(b.Currency)
		sb.WriteByte(0)
		sb.WriteString(b.Amount.String())
		sb.WriteByte(0)
		sb.WriteString(b.Chain)
		sb.WriteByte(0x1e)
	}
	sb.WriteByte(0x1d)

	chains := make([]string, 0, len(priorities))
	for chain := range priorities {
		chains = append(chains, chain)
	}
	slices.Sort(chains)
	for _, chain := range chains {
		sb.WriteString(chain)
		sb.WriteByte(0)
		sb.WriteString(strconv.Itoa(priorities[chain]))
		sb.WriteByte(0x1e)
	}

	return xxhash3.HashString(sb.String())
}
