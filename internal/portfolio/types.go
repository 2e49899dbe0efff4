package portfolio

import "time"

// Present marks an end date of an entry that is still ongoing.
const Present = "PRESENT"

// Portfolio is the document stored per user. Scalars that were never filled
// in are empty strings and absent collections are nil; readers treat both as
// "not specified".
type Portfolio struct {
	ID               string        `json:"id,omitempty" bson:"_id,omitempty" yaml:"-"`
	Username         string        `json:"username" bson:"username" yaml:"username"`
	Email            string        `json:"email" bson:"email" yaml:"email"`
	FullName         string        `json:"fullName,omitempty" bson:"fullName,omitempty" yaml:"fullName,omitempty"`
	Country          string        `json:"country,omitempty" bson:"country,omitempty" yaml:"country,omitempty"`
	State            string        `json:"state,omitempty" bson:"state,omitempty" yaml:"state,omitempty"`
	City             string        `json:"city,omitempty" bson:"city,omitempty" yaml:"city,omitempty"`
	ProfilePicURL    string        `json:"profilePicUrl,omitempty" bson:"profilePicUrl,omitempty" yaml:"profilePicUrl,omitempty"`
	Bio              string        `json:"bio,omitempty" bson:"bio,omitempty" yaml:"bio,omitempty"`
	OpenRouterAPIKey string        `json:"openRouterApiKey,omitempty" bson:"openRouterApiKey,omitempty" yaml:"openRouterApiKey,omitempty"`
	SocialLinks      []SocialLink  `json:"socialLinks" bson:"socialLinks" yaml:"socialLinks"`
	Skills           []Skill       `json:"skills" bson:"skills" yaml:"skills"`
	Projects         []Project     `json:"projects" bson:"projects" yaml:"projects"`
	Experiences      []Experience  `json:"experiences" bson:"experiences" yaml:"experiences"`
	Education        []Education   `json:"education" bson:"education" yaml:"education"`
	Certificates     []Certificate `json:"certificates" bson:"certificates" yaml:"certificates"`
	CreatedAt        *time.Time    `json:"createdAt,omitempty" bson:"createdAt,omitempty" yaml:"-"`
	UpdatedAt        *time.Time    `json:"updatedAt,omitempty" bson:"updatedAt,omitempty" yaml:"-"`
}

type SocialLink struct {
	Name string `json:"name" bson:"name" yaml:"name"`
	Logo string `json:"logo,omitempty" bson:"logo,omitempty" yaml:"logo,omitempty"`
	URL  string `json:"url" bson:"url" yaml:"url"`
}

// Skill is a single skill with a self-assessed confidence in [0,100].
type Skill struct {
	Type        string  `json:"type,omitempty" bson:"type,omitempty" yaml:"type,omitempty"`
	Name        string  `json:"name" bson:"name" yaml:"name"`
	Description string  `json:"description,omitempty" bson:"description,omitempty" yaml:"description,omitempty"`
	Logo        string  `json:"logo,omitempty" bson:"logo,omitempty" yaml:"logo,omitempty"`
	Confidence  float64 `json:"confidence" bson:"confidence" yaml:"confidence"`
	Top         bool    `json:"top,omitempty" bson:"top,omitempty" yaml:"top,omitempty"`
}

// ProjectSkill references a skill used in a project.
type ProjectSkill struct {
	Name string `json:"name" bson:"name" yaml:"name"`
	Logo string `json:"logo,omitempty" bson:"logo,omitempty" yaml:"logo,omitempty"`
}

type Project struct {
	Name          string         `json:"name" bson:"name" yaml:"name"`
	Description   string         `json:"description,omitempty" bson:"description,omitempty" yaml:"description,omitempty"`
	Thumbnail     string         `json:"thumbnail,omitempty" bson:"thumbnail,omitempty" yaml:"thumbnail,omitempty"`
	VideoLink     string         `json:"videoLink,omitempty" bson:"videoLink,omitempty" yaml:"videoLink,omitempty"`
	StartDate     string         `json:"startDate,omitempty" bson:"startDate,omitempty" yaml:"startDate,omitempty"`
	EndDate       string         `json:"endDate,omitempty" bson:"endDate,omitempty" yaml:"endDate,omitempty"`
	LiveLink      string         `json:"liveLink,omitempty" bson:"liveLink,omitempty" yaml:"liveLink,omitempty"`
	GithubLink    string         `json:"githubLink,omitempty" bson:"githubLink,omitempty" yaml:"githubLink,omitempty"`
	Skills        []ProjectSkill `json:"skills" bson:"skills" yaml:"skills"`
	Contributions string         `json:"contributions,omitempty" bson:"contributions,omitempty" yaml:"contributions,omitempty"`
	Top           bool           `json:"top,omitempty" bson:"top,omitempty" yaml:"top,omitempty"`
}

type Experience struct {
	Title          string `json:"title" bson:"title" yaml:"title"`
	EmployeeType   string `json:"employeeType,omitempty" bson:"employeeType,omitempty" yaml:"employeeType,omitempty"`
	CompanyName    string `json:"companyName" bson:"companyName" yaml:"companyName"`
	CompanyLogoURL string `json:"companyLogoUrl,omitempty" bson:"companyLogoUrl,omitempty" yaml:"companyLogoUrl,omitempty"`
	CompanyWebsite string `json:"companyWebsite,omitempty" bson:"companyWebsite,omitempty" yaml:"companyWebsite,omitempty"`
	StartDate      string `json:"startDate,omitempty" bson:"startDate,omitempty" yaml:"startDate,omitempty"`
	EndDate        string `json:"endDate,omitempty" bson:"endDate,omitempty" yaml:"endDate,omitempty"`
	Location       string `json:"location,omitempty" bson:"location,omitempty" yaml:"location,omitempty"`
	LocationType   string `json:"locationType,omitempty" bson:"locationType,omitempty" yaml:"locationType,omitempty"`
}

type Education struct {
	School        string `json:"school" bson:"school" yaml:"school"`
	SchoolLogoURL string `json:"schoolLogoUrl,omitempty" bson:"schoolLogoUrl,omitempty" yaml:"schoolLogoUrl,omitempty"`
	Degree        string `json:"degree" bson:"degree" yaml:"degree"`
	StartDate     string `json:"startDate,omitempty" bson:"startDate,omitempty" yaml:"startDate,omitempty"`
	EndDate       string `json:"endDate,omitempty" bson:"endDate,omitempty" yaml:"endDate,omitempty"`
	Grade         string `json:"grade,omitempty" bson:"grade,omitempty" yaml:"grade,omitempty"`
}

type Certificate struct {
	Name        string `json:"name" bson:"name" yaml:"name"`
	Pic         string `json:"pic,omitempty" bson:"pic,omitempty" yaml:"pic,omitempty"`
	Description string `json:"description,omitempty" bson:"description,omitempty" yaml:"description,omitempty"`
}

// New returns the empty portfolio a user starts with on first sign-in.
func New(username, email string) Portfolio {
	return Portfolio{
		Username:     username,
		Email:        email,
		SocialLinks:  []SocialLink{},
		Skills:       []Skill{},
		Projects:     []Project{},
		Experiences:  []Experience{},
		Education:    []Education{},
		Certificates: []Certificate{},
	}
}

// Redacted returns a copy without the OpenRouter API key, for public reads.
func (p Portfolio) Redacted() Portfolio {
	p.OpenRouterAPIKey = ""
	return p
}

// HasAPIKey reports whether a chat credential is configured.
func (p Portfolio) HasAPIKey() bool {
	return p.OpenRouterAPIKey != ""
}
