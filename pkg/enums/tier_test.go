package enums

import "testing"

func TestTierOrderIsTotal(t *testing.T) {
	if TierFree.Order() != 0 || TierStarter.Order() != 1 || TierPro.Order() != 2 || TierComplete.Order() != 3 {
		t.Fatalf("unexpected tier ordering: free=%d starter=%d pro=%d complete=%d",
			TierFree.Order(), TierStarter.Order(), TierPro.Order(), TierComplete.Order())
	}
}

func TestUnknownTierRanksAsFree(t *testing.T) {
	unknown := Tier("platinum")
	if unknown.IsValid() {
		t.Fatal("platinum should not be a valid tier")
	}
	if unknown.Order() != 0 {
		t.Fatalf("unknown tier should rank as free, got order %d", unknown.Order())
	}
}

func TestTierIncludesIsCumulative(t *testing.T) {
	cases := map[Tier][]Tier{
		TierFree:     {TierFree},
		TierStarter:  {TierFree, TierStarter},
		TierPro:      {TierFree, TierStarter, TierPro},
		TierComplete: {TierFree, TierStarter, TierPro, TierComplete},
	}
	for tier, want := range cases {
		got := tier.Includes()
		if len(got) != len(want) {
			t.Fatalf("%s: expected %v, got %v", tier, want, got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("%s: expected %v, got %v", tier, want, got)
			}
		}
	}
}

func TestParseTierRejectsUnknown(t *testing.T) {
	if _, err := ParseTier("platinum"); err == nil {
		t.Fatal("expected parse error for unknown tier")
	}
	tier, err := ParseTier("pro")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tier != TierPro {
		t.Fatalf("expected pro, got %s", tier)
	}
}

func TestBillingTypeRecurring(t *testing.T) {
	if !BillingTypeMonthly.IsRecurring() || !BillingTypeAnnual.IsRecurring() {
		t.Fatal("monthly and annual should be recurring")
	}
	if BillingTypeOneTime.IsRecurring() {
		t.Fatal("one_time should not be recurring")
	}
}
