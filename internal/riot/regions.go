// Package riot provides identity resolution and match retrieval against the
// Riot public API.
//
// Riot partitions its API by geography twice over: every player-facing region
// code ("na", "euw", ...) maps to a platform shard ("na1", "euw1", ...), and
// every platform belongs to exactly one routing cluster (americas, europe,
// asia, sea) that hosts the account and match services. Handles are resolved
// and matches fetched against the cluster host, never the platform host.
package riot

import "strings"

type (
	// Platform identifies a Riot platform shard, e.g. "na1" or "euw1".
	Platform string

	// Cluster identifies a Riot routing cluster hosting the account-v1 and
	// match-v5 services.
	Cluster string
)

// Routing clusters recognized by the Riot API.
const (
	ClusterAmericas Cluster = "americas"
	ClusterEurope   Cluster = "europe"
	ClusterAsia     Cluster = "asia"
	ClusterSEA      Cluster = "sea"
)

// DefaultCluster is used when a region code cannot be routed. Resolution
// proceeds on this cluster rather than failing: an unrecognized code is a
// routing gap, not proof the player does not exist, and the directory lookup
// on the default cluster settles the question authoritatively.
const DefaultCluster = ClusterAmericas

// platformByRegion maps player-facing region codes to platform shards.
// Platform codes map to themselves so callers may pass either form.
var platformByRegion = map[string]Platform{
	"na": "na1", "na1": "na1",
	"br": "br1", "br1": "br1",
	"lan": "la1", "la1": "la1",
	"las": "la2", "la2": "la2",
	"euw": "euw1", "euw1": "euw1",
	"eune": "eun1", "eun1": "eun1",
	"tr": "tr1", "tr1": "tr1",
	"ru": "ru",
	"kr": "kr",
	"jp": "jp1", "jp1": "jp1",
	"oce": "oc1", "oc1": "oc1",
	"ph": "ph2", "ph2": "ph2",
	"sg": "sg2", "sg2": "sg2",
	"th": "th2", "th2": "th2",
	"tw": "tw2", "tw2": "tw2",
	"vn": "vn2", "vn2": "vn2",
}

// clusterByPlatform maps platform shards to their routing cluster.
var clusterByPlatform = map[Platform]Cluster{
	"na1": ClusterAmericas, "br1": ClusterAmericas, "la1": ClusterAmericas, "la2": ClusterAmericas,
	"euw1": ClusterEurope, "eun1": ClusterEurope, "tr1": ClusterEurope, "ru": ClusterEurope,
	"kr": ClusterAsia, "jp1": ClusterAsia,
	"oc1": ClusterSEA, "ph2": ClusterSEA, "sg2": ClusterSEA, "th2": ClusterSEA, "tw2": ClusterSEA, "vn2": ClusterSEA,
}

// PlatformForRegion maps a region code to its platform shard, accepting
// either the player-facing or the platform form in any case. Returns
// ("", false) for unrecognized codes.
func PlatformForRegion(region string) (Platform, bool) {
	platform, ok := platformByRegion[strings.ToLower(strings.TrimSpace(region))]

	return platform, ok
}

// ClusterForPlatform maps a platform shard to its routing cluster, falling
// back to DefaultCluster for unknown platforms.
func ClusterForPlatform(platform Platform) Cluster {
	if cluster, ok := clusterByPlatform[platform]; ok {
		return cluster
	}

	return DefaultCluster
}

// ClusterForRegion routes a region code to its cluster. Unrecognized codes
// route to DefaultCluster; see the DefaultCluster doc for why this is a
// fallback and not an error.
func ClusterForRegion(region string) Cluster {
	platform, ok := PlatformForRegion(region)
	if !ok {
		return DefaultCluster
	}

	return ClusterForPlatform(platform)
}
