package config

import "testing"

func TestLoadConfigDefaultsWhenUnset(t *testing.T) {
	c, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	want := NewConfig()
	if c.WalkLen != want.WalkLen || c.P != want.P || c.Q != want.Q {
		t.Fatalf("got %+v, want defaults %+v", c, want)
	}
}

func TestLoadConfigOverridesFromEnv(t *testing.T) {
	t.Setenv("FMOB_THREAD_NUM", "8")
	t.Setenv("FMOB_SOCKET_NUM", "2")
	t.Setenv("FMOB_SOCKET_MAPPING", "1, 0")
	t.Setenv("FMOB_WALK_LEN", "40")
	t.Setenv("FMOB_NODE2VEC", "true")
	t.Setenv("FMOB_P", "0.5")
	t.Setenv("FMOB_Q", "2")

	c, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if c.Topology.ThreadNum != 8 || c.Topology.SocketNum != 2 {
		t.Fatalf("topology = %+v", c.Topology)
	}
	if len(c.Topology.SocketMapping) != 2 || c.Topology.SocketMapping[0] != 1 || c.Topology.SocketMapping[1] != 0 {
		t.Fatalf("socket mapping = %v", c.Topology.SocketMapping)
	}
	if c.WalkLen != 40 || !c.Node2Vec || c.P != 0.5 || c.Q != 2 {
		t.Fatalf("got %+v", c)
	}
}

func TestLoadConfigRejectsMalformedValue(t *testing.T) {
	t.Setenv("FMOB_WALK_LEN", "not-a-number")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("want error for malformed FMOB_WALK_LEN")
	}
}
