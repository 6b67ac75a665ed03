package wallet

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dailywell-ai/dailywell/internal/config"
)

func newTestFamily() *Family {
	f := NewFamily(config.FamilyConfig{
		PoolUSD:    10.0,
		OwnerShare: 0.4,
		AdultShare: 0.4,
		ChildShare: 0.2,
	})
	f.AddMember("owner", RoleOwner)
	f.AddMember("kid", RoleChild)
	return f
}

func TestFamilyAllowanceByRole(t *testing.T) {
	f := newTestFamily()
	assert.InDelta(t, 4.0, f.Allowance("owner"), 1e-9)
	assert.InDelta(t, 2.0, f.Allowance("kid"), 1e-9)
	assert.InDelta(t, 2.0, f.Allowance("stranger"), 1e-9, "unknown members get the child share")
}

func TestFamilyCanSpendMemberAllowance(t *testing.T) {
	f := newTestFamily()

	assert.True(t, f.CanSpend("kid", 1.5))
	f.Record("kid", 1.5)

	assert.False(t, f.CanSpend("kid", 1.0), "charge would exceed the child allowance")
	assert.True(t, f.CanSpend("owner", 1.0), "other members are unaffected")
}

func TestFamilyCanSpendPoolExhaustion(t *testing.T) {
	f := newTestFamily()
	f.AddMember("adult", RoleAdult)

	f.Record("owner", 4.0)
	f.Record("adult", 4.0)
	f.Record("kid", 1.5)

	// Pool total 9.5 of 10.0: kid has allowance room but the pool does not.
	assert.True(t, f.CanSpend("kid", 0.5))
	assert.False(t, f.CanSpend("kid", 0.6))
}

func TestFamilyReset(t *testing.T) {
	f := newTestFamily()
	f.Record("kid", 2.0)
	assert.False(t, f.CanSpend("kid", 0.5))

	f.Reset()
	assert.Zero(t, f.Spent("kid"))
	assert.True(t, f.CanSpend("kid", 0.5))
}
