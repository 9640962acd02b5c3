package cliflags

import (
	"testing"

	"github.com/spf13/cobra"
)

func newTestFlags() (*cobra.Command, *WalkFlags) {
	cmd := &cobra.Command{Use: "test"}
	return cmd, Register(cmd)
}

func TestResolveRequiresGraphPath(t *testing.T) {
	_, f := newTestFlags()
	f.OutputPath = "out.txt"
	f.WalkerNum = 10
	if _, err := f.Resolve(); err == nil {
		t.Fatal("expected an error when --graph is unset")
	}
}

func TestResolveRejectsBothEpochAndWalker(t *testing.T) {
	_, f := newTestFlags()
	f.GraphPath = "g.txt"
	f.OutputPath = "out.txt"
	f.EpochNum = 5
	f.WalkerNum = 10
	if _, err := f.Resolve(); err == nil {
		t.Fatal("expected an error when both --epoch and --walker are set")
	}
}

func TestResolveRejectsNeitherEpochNorWalker(t *testing.T) {
	_, f := newTestFlags()
	f.GraphPath = "g.txt"
	f.OutputPath = "out.txt"
	if _, err := f.Resolve(); err == nil {
		t.Fatal("expected an error when neither --epoch nor --walker is set")
	}
}

func TestResolveAcceptsWalkerOnly(t *testing.T) {
	_, f := newTestFlags()
	f.GraphPath = "g.txt"
	f.OutputPath = "out.txt"
	f.WalkerNum = 100
	f.WalkLen = 10
	cfg, err := f.Resolve()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.WalkerNum != 100 {
		t.Fatalf("got WalkerNum=%d, want 100", cfg.WalkerNum)
	}
}

func TestResolveRejectsUnknownFormat(t *testing.T) {
	_, f := newTestFlags()
	f.GraphPath = "g.txt"
	f.OutputPath = "out.txt"
	f.WalkerNum = 10
	f.Format = "yaml"
	if _, err := f.Resolve(); err == nil {
		t.Fatal("expected an error for an unknown graph format")
	}
}

func TestResolveRejectsMismatchedSocketMapping(t *testing.T) {
	_, f := newTestFlags()
	f.GraphPath = "g.txt"
	f.OutputPath = "out.txt"
	f.WalkerNum = 10
	f.SocketNum = 2
	f.SocketMapping = "0,1,2"
	if _, err := f.Resolve(); err == nil {
		t.Fatal("expected an error when socket-mapping length disagrees with --sockets")
	}
}

func TestResolveConvertsMemQuotaToBytes(t *testing.T) {
	_, f := newTestFlags()
	f.GraphPath = "g.txt"
	f.OutputPath = "out.txt"
	f.WalkerNum = 10
	f.MemQuotaGiB = 2
	cfg, err := f.Resolve()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MemQuota != 2<<30 {
		t.Fatalf("got MemQuota=%d, want %d", cfg.MemQuota, 2<<30)
	}
}
