package source

import "strings"

// Platform buckets used for cross-provider comparison. Providers disagree on
// exact platform names ("PS5" vs "PlayStation 5"), so consensus runs over
// coarse buckets instead.
const (
	BucketPC          = "pc"
	BucketPlayStation = "playstation"
	BucketXbox        = "xbox"
	BucketNintendo    = "nintendo"
	BucketMobile      = "mobile"
)

var bucketNeedles = []struct {
	needle string
	bucket string
}{
	{"playstation", BucketPlayStation},
	{"ps vita", BucketPlayStation},
	{"psp", BucketPlayStation},
	{"xbox", BucketXbox},
	{"nintendo", BucketNintendo},
	{"switch", BucketNintendo},
	{"wii", BucketNintendo},
	{"game boy", BucketNintendo},
	{"gamecube", BucketNintendo},
	{"3ds", BucketNintendo},
	{"android", BucketMobile},
	{"ios", BucketMobile},
	{"iphone", BucketMobile},
	{"ipad", BucketMobile},
	{"windows", BucketPC},
	{"linux", BucketPC},
	{"macos", BucketPC},
	{"mac os", BucketPC},
	{"steamos", BucketPC},
	{"pc", BucketPC},
	{"dos", BucketPC},
	{"amiga", BucketPC},
}

// Bucket maps a provider platform name to a coarse bucket, or "" when the
// platform is outside the buckets we compare (e.g. Stadia, arcade boards).
func Bucket(platform string) string {
	p := strings.ToLower(strings.TrimSpace(platform))
	if p == "" {
		return ""
	}
	if p == "ps2" || p == "ps3" || p == "ps4" || p == "ps5" || p == "ps1" || p == "psx" {
		return BucketPlayStation
	}
	for _, n := range bucketNeedles {
		if strings.Contains(p, n.needle) {
			return n.bucket
		}
	}
	return ""
}

// BucketSet maps a list of provider platform names to the set of buckets
// they cover.
func BucketSet(platforms []string) map[string]bool {
	out := make(map[string]bool)
	for _, p := range platforms {
		if b := Bucket(p); b != "" {
			out[b] = true
		}
	}
	return out
}
