package catalog

// School is one institution selectable at registration. The list covers
// universities, TVET colleges, secondary and primary schools, international
// schools and special institutions across Rwanda, plus an "Independent
// Student" entry for registrants outside any institution.
type School struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	District string `json:"district"`
	Type     string `json:"type"`
}

var schools = []School{
	// Universities and higher education
	{ID: "ind", Name: "Independent Student", Category: "Private", District: "Not Specific", Type: "Not Specific"},
	{ID: "ur", Name: "University of Rwanda (UR)", Category: "Public University", District: "Kigali", Type: "university"},
	{ID: "auca", Name: "Adventist University of Central Africa (AUCA)", Category: "Private University", District: "Kigali", Type: "university"},
	{ID: "uok", Name: "University of Kigali (UoK)", Category: "Private University", District: "Kigali", Type: "university"},
	{ID: "ines", Name: "Institut d'Enseignement Supérieur de Ruhengeri (INES)", Category: "Private University", District: "Musanze", Type: "university"},
	{ID: "mount-kenya", Name: "Mount Kenya University Rwanda", Category: "Private University", District: "Kigali", Type: "university"},
	{ID: "inyoma", Name: "Inyoma University", Category: "Private University", District: "Kigali", Type: "university"},
	{ID: "davis-college", Name: "Davis College", Category: "Private College", District: "Kigali", Type: "college"},
	{ID: "kepler", Name: "Kepler University", Category: "Private University", District: "Kigali", Type: "university"},

	// TVET colleges
	{ID: "iprc-kigali", Name: "Integrated Polytechnic Regional College Kigali (IPRC-Kigali)", Category: "Public TVET", District: "Kigali", Type: "tvet"},
	{ID: "iprc-musanze", Name: "Integrated Polytechnic Regional College Musanze (IPRC-Musanze)", Category: "Public TVET", District: "Musanze", Type: "tvet"},
	{ID: "iprc-huye", Name: "Integrated Polytechnic Regional College Huye (IPRC-Huye)", Category: "Public TVET", District: "Huye", Type: "tvet"},
	{ID: "iprc-kitabi", Name: "Integrated Polytechnic Regional College Kitabi (IPRC-Kitabi)", Category: "Public TVET", District: "Nyamagabe", Type: "tvet"},
	{ID: "iprc-tumba", Name: "Integrated Polytechnic Regional College Tumba (IPRC-Tumba)", Category: "Public TVET", District: "Rulindo", Type: "tvet"},
	{ID: "iprc-gishari", Name: "Integrated Polytechnic Regional College Gishari (IPRC-Gishari)", Category: "Public TVET", District: "Rwamagana", Type: "tvet"},

	// Secondary schools
	{ID: "gcu", Name: "Green Hills Academy", Category: "Private Secondary", District: "Kigali", Type: "secondary"},
	{ID: "kigali-parents", Name: "Kigali Parents School", Category: "Private Secondary", District: "Kigali", Type: "secondary"},
	{ID: "riviera", Name: "Riviera High School", Category: "Private Secondary", District: "Kigali", Type: "secondary"},
	{ID: "lycee-de-kigali", Name: "Lycée de Kigali", Category: "Public Secondary", District: "Kigali", Type: "secondary"},
	{ID: "apace", Name: "APACE School", Category: "Private Secondary", District: "Kigali", Type: "secondary"},
	{ID: "essa-nyagatare", Name: "Ecole Secondaire Saint André (ESSA) Nyagatare", Category: "Private Secondary", District: "Nyagatare", Type: "secondary"},
	{ID: "gs-rwamagana", Name: "GS Rwamagana", Category: "Public Secondary", District: "Rwamagana", Type: "secondary"},
	{ID: "gs-huye", Name: "GS Huye", Category: "Public Secondary", District: "Huye", Type: "secondary"},
	{ID: "indangaburezi", Name: "Indangaburezi School", Category: "Private Secondary", District: "Huye", Type: "secondary"},
	{ID: "gs-muhanga", Name: "GS Muhanga", Category: "Public Secondary", District: "Muhanga", Type: "secondary"},
	{ID: "csk-kibuye", Name: "Collège Saint Kizito Kibuye", Category: "Private Secondary", District: "Karongi", Type: "secondary"},
	{ID: "gs-musanze", Name: "GS Musanze", Category: "Public Secondary", District: "Musanze", Type: "secondary"},
	{ID: "petit-seminaire-karubanda", Name: "Petit Séminaire Karubanda", Category: "Private Secondary", District: "Musanze", Type: "secondary"},

	// Primary schools
	{ID: "ep-kigali-parents", Name: "EP Kigali Parents School", Category: "Private Primary", District: "Kigali", Type: "primary"},
	{ID: "green-hills-primary", Name: "Green Hills Academy Primary", Category: "Private Primary", District: "Kigali", Type: "primary"},
	{ID: "ep-kimisagara", Name: "EP Kimisagara", Category: "Public Primary", District: "Kigali", Type: "primary"},
	{ID: "ep-musanze", Name: "EP Musanze", Category: "Public Primary", District: "Musanze", Type: "primary"},
	{ID: "ep-huye", Name: "EP Huye", Category: "Public Primary", District: "Huye", Type: "primary"},
	{ID: "ep-rwamagana", Name: "EP Rwamagana", Category: "Public Primary", District: "Rwamagana", Type: "primary"},

	// International schools
	{ID: "kigali-international-school", Name: "Kigali International School", Category: "International School", District: "Kigali", Type: "international"},
	{ID: "ecole-francaise", Name: "École Française Antoine de Saint-Exupéry", Category: "International School", District: "Kigali", Type: "international"},
	{ID: "umubano-primary", Name: "Umubano Primary School", Category: "International School", District: "Kigali", Type: "international"},

	// Special education and other institutions
	{ID: "sovu-deaf", Name: "Sovu School for the Deaf", Category: "Special Education", District: "Huye", Type: "special"},
	{ID: "rwandan-traditional-arts", Name: "Rwandan Traditional Arts Centre", Category: "Arts & Culture", District: "Kigali", Type: "specialized"},
}

// Schools returns the full school list.
func Schools() []School {
	out := make([]School, len(schools))
	copy(out, schools)
	return out
}

// SchoolsByType returns the schools of the given type. An empty or unknown
// type returns the full list.
func SchoolsByType(schoolType string) []School {
	switch schoolType {
	case "university", "college", "tvet", "secondary", "primary", "international", "special", "specialized":
	default:
		return Schools()
	}
	var out []School
	for _, s := range schools {
		if s.Type == schoolType {
			out = append(out, s)
		}
	}
	return out
}

// SchoolsByDistrict returns the schools in the given district.
func SchoolsByDistrict(district string) []School {
	var out []School
	for _, s := range schools {
		if s.District == district {
			out = append(out, s)
		}
	}
	return out
}
