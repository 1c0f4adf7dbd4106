package realmlist

import (
	"bytes"
	"testing"
)

func TestGetBuildInfo_KnownBuilds(t *testing.T) {
	for _, build := range []uint32{5875, 6005, 6141, 8606, 12340} {
		info := GetBuildInfo(build)
		if info == nil {
			t.Fatalf("build %d must be in the registry", build)
		}
		if info.Build != build {
			t.Fatalf("build %d returned info for %d", build, info.Build)
		}
	}
}

func TestGetBuildInfo_UnknownBuild(t *testing.T) {
	if info := GetBuildInfo(9999); info != nil {
		t.Fatalf("unknown build must return nil, got %+v", info)
	}
}

func TestGetBuildInfo_ReturnsCopy(t *testing.T) {
	info := GetBuildInfo(12340)
	info.MajorVersion = 99
	if fresh := GetBuildInfo(12340); fresh.MajorVersion == 99 {
		t.Fatal("mutating a returned BuildInfo must not touch the registry")
	}
}

func TestBuildTier(t *testing.T) {
	cases := []struct {
		build uint32
		want  Tier
	}{
		{5875, TierClassic},
		{6005, TierClassic},
		{6141, TierClassic},
		{8606, TierExpansion},
		{12340, TierExpansion},
		{9999, TierUnsupported},
		{0, TierUnsupported},
	}
	for _, tc := range cases {
		if got := BuildTier(tc.build); got != tc.want {
			t.Errorf("BuildTier(%d) = %v, want %v", tc.build, got, tc.want)
		}
	}
}

func TestVersionHash_PerPlatform(t *testing.T) {
	info := GetBuildInfo(12340)

	win := info.VersionHash("Win")
	mac := info.VersionHash("OSX")
	if len(win) != 20 || len(mac) != 20 {
		t.Fatalf("hashes must be 20 bytes: win=%d mac=%d", len(win), len(mac))
	}
	if bytes.Equal(win, mac) {
		t.Fatal("Windows and Mac binary hashes must differ")
	}
	if info.VersionHash("Lin") != nil {
		t.Fatal("unknown platform must return nil")
	}
}
