package tiers_test

import (
	"testing"

	"github.com/bu-isciii/tierarch/backend/internal/services"
	"github.com/bu-isciii/tierarch/backend/internal/tiers"
	"github.com/stretchr/testify/require"
)

var cfg1 = &tiers.Config{
	LiveRoot:    "/data/bi",
	ArchiveRoot: "/archive/bi",
	ArchiveExt:  "tar.zst",
}

var rec1 = services.Record{
	RequestId: "SRVCNM584.1",
	Center:    "CNM",
	Area:      "Virologia",
	Type:      services.TypeResearch,
}

func TestResolve(t *testing.T) {
	p := tiers.Resolve(cfg1, services.TypeServicesAndCollaborations, rec1)
	require.Equal(t,
		"/archive/bi/services_and_collaborations/CNM/virologia/SRVCNM584.1",
		p.Archived,
	)
	require.Equal(t,
		"/data/bi/services_and_collaborations/CNM/virologia/SRVCNM584.1",
		p.Live,
	)

	// Deterministic.
	require.Equal(t, p, tiers.Resolve(cfg1, services.TypeServicesAndCollaborations, rec1))

	// Record type is the fallback.
	p = tiers.Resolve(cfg1, "", rec1)
	require.Equal(t, "/data/bi/research/CNM/virologia/SRVCNM584.1", p.Live)
}

func TestResolveEmptyArea(t *testing.T) {
	rec := rec1
	rec.Area = ""
	p := tiers.Resolve(cfg1, services.TypeResearch, rec)
	require.Equal(t, "/archive/bi/research/CNM/SRVCNM584.1", p.Archived)
	require.Equal(t, "/data/bi/research/CNM/SRVCNM584.1", p.Live)
}

func TestLayout(t *testing.T) {
	p := tiers.Resolve(cfg1, services.TypeResearch, rec1)

	ar := p.Layout(tiers.Archive, "tar.zst")
	require.Equal(t, p.Live, ar.SourceDir)
	require.Equal(t, p.Live+".tar.zst", ar.SourceArchive)
	require.Equal(t, p.Archived, ar.DestDir)
	require.Equal(t, p.Archived+".tar.zst", ar.DestArchive)

	re := p.Layout(tiers.Retrieve, "tar.gz")
	require.Equal(t, p.Archived, re.SourceDir)
	require.Equal(t, p.Archived+".tar.gz", re.SourceArchive)
	require.Equal(t, p.Live, re.DestDir)
	require.Equal(t, p.Live+".tar.gz", re.DestArchive)
}

func TestParseDirection(t *testing.T) {
	d, ok := tiers.ParseDirection("retrieve")
	require.True(t, ok)
	require.Equal(t, tiers.Retrieve, d)
	require.Equal(t, "retrieve", d.String())

	_, ok = tiers.ParseDirection("move")
	require.False(t, ok)
}
