package script

import "testing"

func TestParseBasicGet(t *testing.T) {
	cmds, err := Parse("get 5 apple", LiteralResolver{})
	if err != nil {
		t.Fatal(err)
	}
	if len(cmds) != 1 {
		t.Fatalf("got %d commands, want 1", len(cmds))
	}
	c := cmds[0]
	if c.Verb != "get" {
		t.Fatalf("got verb %q", c.Verb)
	}
	if len(c.Items) != 1 || c.Items[0].Name != "apple" || c.Items[0].Amount != 5 {
		t.Fatalf("got items %+v", c.Items)
	}
}

func TestParseMultipleItemsWithMeta(t *testing.T) {
	cmds, err := Parse("get 1 axe[life=80000] 2 traveller-bow[life=80000] 1 pot-lid 1 pot-lid[life=80000]", LiteralResolver{})
	if err != nil {
		t.Fatal(err)
	}
	if len(cmds) != 1 {
		t.Fatalf("got %d commands, want 1", len(cmds))
	}
	items := cmds[0].Items
	if len(items) != 4 {
		t.Fatalf("got %d items, want 4", len(items))
	}
	if items[0].Name != "axe" || items[0].Amount != 1 || items[0].Modifier == nil || items[0].Modifier.Value != 80000 {
		t.Fatalf("got %+v", items[0])
	}
	if items[1].Name != "traveller-bow" || items[1].Amount != 2 {
		t.Fatalf("got %+v", items[1])
	}
	if items[2].Name != "pot-lid" || items[2].Modifier != nil {
		t.Fatalf("got %+v", items[2])
	}
	if items[3].Name != "pot-lid" || items[3].Modifier == nil {
		t.Fatalf("got %+v", items[3])
	}
}

func TestParseMultipleStatementsOnOneLine(t *testing.T) {
	cmds, err := Parse("get fury; get gale; get grace; get daruk", LiteralResolver{})
	if err != nil {
		t.Fatal(err)
	}
	if len(cmds) != 4 {
		t.Fatalf("got %d commands, want 4", len(cmds))
	}
	for i, want := range []string{"fury", "gale", "grace", "daruk"} {
		if cmds[i].Items[0].Name != want {
			t.Fatalf("command %d: got %q, want %q", i, cmds[i].Items[0].Name, want)
		}
	}
}

func TestParseCommaSeparatedItemsShareTheVerb(t *testing.T) {
	cmds, err := Parse("get apple, banana, fairy, palm-fruit", LiteralResolver{})
	if err != nil {
		t.Fatal(err)
	}
	if len(cmds) != 1 || len(cmds[0].Items) != 4 {
		t.Fatalf("got %+v", cmds)
	}
}

func TestParseEatAllBut(t *testing.T) {
	cmds, err := Parse("eat all but banana", LiteralResolver{})
	if err != nil {
		t.Fatal(err)
	}
	if len(cmds) != 1 {
		t.Fatalf("got %d commands", len(cmds))
	}
	if cmds[0].Verb != "eat-all" {
		t.Fatalf("got verb %q, want eat-all", cmds[0].Verb)
	}
	if len(cmds[0].Items) != 1 || cmds[0].Items[0].Name != "banana" {
		t.Fatalf("got %+v", cmds[0].Items)
	}
}

func TestParseActorNameBracket(t *testing.T) {
	cmds, err := Parse("sell all <Weapon_Sword_070>", LiteralResolver{})
	if err != nil {
		t.Fatal(err)
	}
	if cmds[0].Verb != "sell-all" {
		t.Fatalf("got verb %q", cmds[0].Verb)
	}
	if cmds[0].Items[0].Name != "Weapon_Sword_070" {
		t.Fatalf("got name %q", cmds[0].Items[0].Name)
	}
}

func TestParseDropMultiple(t *testing.T) {
	cmds, err := Parse("drop 1 weapon 2 bow 2 shield", LiteralResolver{})
	if err != nil {
		t.Fatal(err)
	}
	if len(cmds[0].Items) != 3 {
		t.Fatalf("got %d items", len(cmds[0].Items))
	}
	if cmds[0].Items[1].Amount != 2 || cmds[0].Items[1].Name != "bow" {
		t.Fatalf("got %+v", cmds[0].Items[1])
	}
}

func TestParseIgnoresNoteBlocksAndComments(t *testing.T) {
	src := "'''note\nthis is ignored\nget 99 nothing\n'''\nget 1 apple // trailing comment\n# standalone comment\nget 1 banana"
	cmds, err := Parse(src, LiteralResolver{})
	if err != nil {
		t.Fatal(err)
	}
	if len(cmds) != 2 {
		t.Fatalf("got %d commands, want 2: %+v", len(cmds), cmds)
	}
	if cmds[0].Items[0].Name != "apple" || cmds[1].Items[0].Name != "banana" {
		t.Fatalf("got %+v", cmds)
	}
}

func TestParseSupercommandAndPseudoCommandPassThrough(t *testing.T) {
	cmds, err := Parse("!break 1 slot; :item-box-pause; unpause", LiteralResolver{})
	if err != nil {
		t.Fatal(err)
	}
	if len(cmds) != 3 {
		t.Fatalf("got %d commands, want 3", len(cmds))
	}
	if cmds[0].Verb != "!break" || cmds[0].Items[0].Name != "slot" {
		t.Fatalf("got %+v", cmds[0])
	}
	if cmds[1].Verb != ":item-box-pause" {
		t.Fatalf("got verb %q", cmds[1].Verb)
	}
	if cmds[2].Verb != "unpause" {
		t.Fatalf("got verb %q", cmds[2].Verb)
	}
}

func TestParseSkipsEmptyStatements(t *testing.T) {
	if _, err := Parse(";;", LiteralResolver{}); err != nil {
		t.Fatalf("a run of empty separators should just yield zero commands, got error %v", err)
	}
}

func TestLiteralResolverStripsAngleBrackets(t *testing.T) {
	got, err := LiteralResolver{}.Resolve("<Weapon_Sword_070>")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Weapon_Sword_070" {
		t.Fatalf("got %q", got)
	}
}

func TestLiteralResolverNormalizesUnderscores(t *testing.T) {
	got, err := LiteralResolver{}.Resolve("pot_lid")
	if err != nil {
		t.Fatal(err)
	}
	if got != "pot-lid" {
		t.Fatalf("got %q", got)
	}
}
