package tickets

// Resorts is the closed set of resort names a ticket can be sold for.
var Resorts = []string{
	"Vail", "Beaver Creek", "Breckenridge", "Keystone", "Crested Butte", "Park City", "Heavenly", "Northstar",
	"Kirkwood", "Whistler Blackcomb", "Perisher", "Falls Creek", "Hotham", "Stowe", "Mount Snow", "Okemo",
	"Hunter Mountain", "Mount Sunapee", "Attitash", "Wildcat", "Crotched", "Stevens Pass", "Liberty", "Roundtop",
	"Whitetail", "Jack Frost", "Big Boulder", "Alpine Valley", "Boston Mills", "Brandywine", "Mad River",
	"Hidden Valley", "Snow Creek", "Wilmot", "Afton Alps", "Mt. Brighton", "Paoli Peaks",
}

var resortSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(Resorts))
	for _, r := range Resorts {
		set[r] = struct{}{}
	}
	return set
}()

// IsResort reports whether name is one of Resorts.
func IsResort(name string) bool {
	_, ok := resortSet[name]
	return ok
}
