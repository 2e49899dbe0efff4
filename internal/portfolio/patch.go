package portfolio

// Patch holds the client-updatable fields of a portfolio. Nil fields are
// left untouched. Identity fields (id, username, email) and timestamps are
// not updatable and have no place here.
type Patch struct {
	FullName         *string        `json:"fullName,omitempty" yaml:"fullName,omitempty"`
	Country          *string        `json:"country,omitempty" yaml:"country,omitempty"`
	State            *string        `json:"state,omitempty" yaml:"state,omitempty"`
	City             *string        `json:"city,omitempty" yaml:"city,omitempty"`
	ProfilePicURL    *string        `json:"profilePicUrl,omitempty" yaml:"profilePicUrl,omitempty"`
	Bio              *string        `json:"bio,omitempty" yaml:"bio,omitempty"`
	OpenRouterAPIKey *string        `json:"openRouterApiKey,omitempty" yaml:"openRouterApiKey,omitempty"`
	SocialLinks      *[]SocialLink  `json:"socialLinks,omitempty" yaml:"socialLinks,omitempty"`
	Skills           *[]Skill       `json:"skills,omitempty" yaml:"skills,omitempty"`
	Projects         *[]Project     `json:"projects,omitempty" yaml:"projects,omitempty"`
	Experiences      *[]Experience  `json:"experiences,omitempty" yaml:"experiences,omitempty"`
	Education        *[]Education   `json:"education,omitempty" yaml:"education,omitempty"`
	Certificates     *[]Certificate `json:"certificates,omitempty" yaml:"certificates,omitempty"`
}

// IsEmpty reports whether the patch would change nothing.
func (pt Patch) IsEmpty() bool {
	return len(pt.Fields()) == 0
}

// Apply copies every non-nil field of the patch onto p.
func (pt Patch) Apply(p *Portfolio) {
	setString(&p.FullName, pt.FullName)
	setString(&p.Country, pt.Country)
	setString(&p.State, pt.State)
	setString(&p.City, pt.City)
	setString(&p.ProfilePicURL, pt.ProfilePicURL)
	setString(&p.Bio, pt.Bio)
	setString(&p.OpenRouterAPIKey, pt.OpenRouterAPIKey)
	if pt.SocialLinks != nil {
		p.SocialLinks = *pt.SocialLinks
	}
	if pt.Skills != nil {
		p.Skills = *pt.Skills
	}
	if pt.Projects != nil {
		p.Projects = *pt.Projects
	}
	if pt.Experiences != nil {
		p.Experiences = *pt.Experiences
	}
	if pt.Education != nil {
		p.Education = *pt.Education
	}
	if pt.Certificates != nil {
		p.Certificates = *pt.Certificates
	}
}

// Fields returns the set fields keyed by their document name, suitable for a
// partial update in a document store.
func (pt Patch) Fields() map[string]any {
	fields := make(map[string]any)
	addString(fields, "fullName", pt.FullName)
	addString(fields, "country", pt.Country)
	addString(fields, "state", pt.State)
	addString(fields, "city", pt.City)
	addString(fields, "profilePicUrl", pt.ProfilePicURL)
	addString(fields, "bio", pt.Bio)
	addString(fields, "openRouterApiKey", pt.OpenRouterAPIKey)
	if pt.SocialLinks != nil {
		fields["socialLinks"] = *pt.SocialLinks
	}
	if pt.Skills != nil {
		fields["skills"] = *pt.Skills
	}
	if pt.Projects != nil {
		fields["projects"] = *pt.Projects
	}
	if pt.Experiences != nil {
		fields["experiences"] = *pt.Experiences
	}
	if pt.Education != nil {
		fields["education"] = *pt.Education
	}
	if pt.Certificates != nil {
		fields["certificates"] = *pt.Certificates
	}
	return fields
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func addString(fields map[string]any, key string, v *string) {
	if v != nil {
		fields[key] = *v
	}
}
