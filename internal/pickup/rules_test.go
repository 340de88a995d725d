package pickup

import (
	"testing"

	"areastate.ai/internal/areastate"
)

func TestLoad_ConfigsPickupYAML(t *testing.T) {
	f, err := Load("../../configs/pickup.yaml")
	if err != nil {
		t.Fatalf("load pickup.yaml: %v", err)
	}
	if f.Len() != 4 {
		t.Fatalf("disabled rule should be skipped, got %d rules", f.Len())
	}

	cases := []struct {
		item areastate.Object
		rule string
		ok   bool
	}{
		{areastate.Object{Name: "Chaos Orb", Metadata: "Metadata/Items/Currency/CurrencyRerollRare"}, "currency", true},
		{areastate.Object{Name: "Headhunter", Metadata: "Metadata/Items/Belts/Belt1", Rarity: areastate.RarityUnique}, "uniques", true},
		{areastate.Object{Name: "Viridian Jewel", Metadata: "Metadata/Items/Jewels/JewelDex", Rarity: areastate.RarityRare}, "rare jewels", true},
		{areastate.Object{Name: "Viridian Jewel", Metadata: "Metadata/Items/Jewels/JewelDex", Rarity: areastate.RarityMagic}, "", false},
		{areastate.Object{Name: "Vaal Regalia", Metadata: "Metadata/Items/Armours/BodyArmours/BodyInt14"}, "", false},
		{areastate.Object{Name: "Strand Map", Metadata: "Metadata/Items/Maps/MapWorldsStrand"}, "maps", true},
	}
	for _, tc := range cases {
		rule, ok := f.Match(tc.item)
		if ok != tc.ok || rule != tc.rule {
			t.Fatalf("%s: got (%q, %v) want (%q, %v)", tc.item.Name, rule, ok, tc.rule, tc.ok)
		}
	}
}

func TestMetadataGlobStopsAtSeparator(t *testing.T) {
	f, err := New(Config{Rules: []RuleSpec{{Name: "top", Metadata: "Metadata/Items/*"}}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, ok := f.Match(areastate.Object{Metadata: "Metadata/Items/Currency/Orb"}); ok {
		t.Fatalf("single * should not cross '/'")
	}
	if _, ok := f.Match(areastate.Object{Metadata: "Metadata/Items/Orb"}); !ok {
		t.Fatalf("direct child should match")
	}
}

func TestNew_RejectsBadRules(t *testing.T) {
	bad := []RuleSpec{
		{Name: "not bool", When: "stack + 1"},
		{Name: "syntax", When: "rarity >="},
		{Name: "unknown var", When: "quality > 10"},
		{Name: "match all"},
		{Name: "bad glob", NamePattern: "[abc"},
	}
	for _, rs := range bad {
		if _, err := New(Config{Rules: []RuleSpec{rs}}); err == nil {
			t.Fatalf("%s: expected error", rs.Name)
		}
	}
}

func TestWhen_StackAndKind(t *testing.T) {
	f, err := New(Config{Rules: []RuleSpec{{Name: "stacks", When: `stack >= 10 && kind == "ITEM"`}}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, ok := f.Match(areastate.Object{Kind: areastate.ObjItem, Stack: 9}); ok {
		t.Fatalf("small stack matched")
	}
	if rule, ok := f.Match(areastate.Object{Kind: areastate.ObjItem, Stack: 20}); !ok || rule != "stacks" {
		t.Fatalf("large stack: %q %v", rule, ok)
	}
}
