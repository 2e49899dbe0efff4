package composer

import (
	"strings"
	"time"

	"github.com/folio-hq/folio/internal/portfolio"
)

// DefaultEmail is shown in the summary when a portfolio has no email.
const DefaultEmail = "Not specified"

// Section limits and truncation lengths, in characters.
const (
	maxAllProjects    = 5
	maxExperiences    = 3
	maxEducation      = 2
	maxCertificates   = 3
	bioLimit          = 200
	topProjectLimit   = 200
	allProjectLimit   = 120
	certificateLimit  = 150
	entrySeparator    = "\n\n"
	socialLinkDivider = "\n"
)

// Options tunes the rendered context.
type Options struct {
	// DefaultEmail replaces a missing email. Empty means DefaultEmail.
	DefaultEmail string
}

// Builder renders a portfolio into the system prompt of the chat assistant.
// It is pure: the output depends only on the portfolio and the options.
type Builder struct {
	opts Options
}

// New creates a Builder. Zero-valued options fall back to their defaults.
func New(opts Options) *Builder {
	if opts.DefaultEmail == "" {
		opts.DefaultEmail = DefaultEmail
	}
	return &Builder{opts: opts}
}

// Build renders p with default options.
func Build(p portfolio.Portfolio) string {
	return New(Options{}).Build(p)
}

// Build renders the full system prompt for p. Missing fields degrade to
// placeholders; it never fails.
func (b *Builder) Build(p portfolio.Portfolio) string {
	owner := or(p.FullName, or(p.Username, "the portfolio owner"))

	var sb strings.Builder
	sb.WriteString("You are a professional AI assistant for *" + owner + "* (username: " + orNA(p.Username) + ").\n\n")

	b.writeSummary(&sb, p)

	sb.WriteString("SOCIAL LINKS:\n")
	sb.WriteString(or(socialLinks(p.SocialLinks), "No social links listed"))
	sb.WriteString("\n\n")

	skills := SortSkills(p.Skills)
	sb.WriteString("TOP SKILLS (sorted by confidence): " + or(formatSkills(skills, true), "No top skills marked") + "\n\n")
	sb.WriteString("NOTE: If the user asks for *all* skills, you can share this full list:\n")
	sb.WriteString("ALL SKILLS (sorted by confidence): " + or(formatSkills(skills, false), "No skills listed") + "\n\n")

	writeBlock(&sb, "TOP PROJECTS (detailed)", topProjects(p.Projects), "No top projects listed")
	writeBlock(&sb, "ALL PROJECTS (detailed)", allProjects(p.Projects), "No projects listed")
	writeBlock(&sb, "RECENT EXPERIENCE (detailed)", experiences(p.Experiences), "No experience listed")
	writeBlock(&sb, "EDUCATION (detailed)", education(p.Education), "No education listed")
	writeBlock(&sb, "CERTIFICATES (detailed)", certificates(p.Certificates), "No certificates listed")

	sb.WriteString("CONTACT: " + contactLine(p.SocialLinks) + "\n\n")

	sb.WriteString(instructions)
	sb.WriteString("\n\nRemember: You represent " + or(p.FullName, or(p.Username, "this person")) +
		" professionally. Use the formatting markers to highlight important information and make links clickable.")

	return sb.String()
}

func (b *Builder) writeSummary(sb *strings.Builder, p portfolio.Portfolio) {
	location := JoinNonEmpty([]string{p.City, p.State, p.Country}, ", ")

	bio := "No bio provided"
	if p.Bio != "" {
		bio = Truncate(p.Bio, bioLimit)
	}

	sb.WriteString("PORTFOLIO SUMMARY:\n")
	sb.WriteString("- Username: " + or(p.Username, "Not specified") + "\n")
	sb.WriteString("- Email: " + or(p.Email, b.opts.DefaultEmail) + "\n")
	sb.WriteString("- Full Name: " + or(p.FullName, "Not specified") + "\n")
	sb.WriteString("- Location: " + or(location, "Not specified") + "\n")
	sb.WriteString("- Profile Picture: " + or(p.ProfilePicURL, "Not specified") + "\n")
	sb.WriteString("- Bio: " + bio + "\n")
	if p.CreatedAt != nil {
		sb.WriteString("- Created At: " + p.CreatedAt.UTC().Format(time.RFC3339) + "\n")
	}
	if p.UpdatedAt != nil {
		sb.WriteString("- Updated At: " + p.UpdatedAt.UTC().Format(time.RFC3339) + "\n")
	}
	sb.WriteString("\n")
}

func writeBlock(sb *strings.Builder, title string, entries []string, empty string) {
	sb.WriteString(title + ":\n")
	if len(entries) == 0 {
		sb.WriteString(empty)
	} else {
		sb.WriteString(strings.Join(entries, entrySeparator))
	}
	sb.WriteString("\n\n")
}

func socialLinks(links []portfolio.SocialLink) string {
	lines := make([]string, 0, len(links))
	for _, l := range links {
		lines = append(lines, "• "+l.Name+": "+LinkMarker(l.Name, l.URL))
	}
	return strings.Join(lines, socialLinkDivider)
}

func contactLine(links []portfolio.SocialLink) string {
	c, ok := PrimaryContact(links)
	if !ok {
		return "Check portfolio for contact info"
	}
	return c.Name + ": " + LinkMarker(c.Name, c.URL)
}

func projectSkills(skills []portfolio.ProjectSkill) string {
	names := make([]string, 0, len(skills))
	for _, s := range skills {
		names = append(names, s.Name)
	}
	return orNA(JoinNonEmpty(names, ", "))
}

// projectHeader renders the lines shared by the top and the full project lists.
func projectHeader(pr portfolio.Project, descLimit int) string {
	return "• *" + orNA(pr.Name) + "*\n" +
		"  Description: " + truncateOrNA(pr.Description, descLimit) + "\n" +
		"  Skills: " + projectSkills(pr.Skills) + "\n" +
		"  Timeline: " + dateRange(pr.StartDate, pr.EndDate) + "\n" +
		"  Live: " + linkOrNA("Live Demo", pr.LiveLink) + " | GitHub: " + linkOrNA("GitHub", pr.GithubLink)
}

func topProjects(projects []portfolio.Project) []string {
	var out []string
	for _, pr := range projects {
		if !pr.Top {
			continue
		}
		out = append(out, projectHeader(pr, topProjectLimit)+"\n"+
			"  Thumbnail: "+orNA(pr.Thumbnail)+"\n"+
			"  Video: "+orNA(pr.VideoLink)+"\n"+
			"  Contributions: "+orNA(pr.Contributions))
	}
	return out
}

func allProjects(projects []portfolio.Project) []string {
	var out []string
	for i, pr := range projects {
		if i == maxAllProjects {
			break
		}
		out = append(out, projectHeader(pr, allProjectLimit))
	}
	return out
}

func experiences(exps []portfolio.Experience) []string {
	var out []string
	for i, e := range exps {
		if i == maxExperiences {
			break
		}
		website := notAvailable
		if e.CompanyWebsite != "" {
			website = LinkMarker(or(e.CompanyName, e.CompanyWebsite), e.CompanyWebsite)
		}
		out = append(out, "• *"+orNA(e.Title)+"* at *"+orNA(e.CompanyName)+"*\n"+
			"  Type: "+orNA(e.EmployeeType)+"\n"+
			"  Duration: "+dateRange(e.StartDate, e.EndDate)+"\n"+
			"  Location: "+orNA(e.Location)+" ("+orNA(e.LocationType)+")\n"+
			"  Company Website: "+website)
	}
	return out
}

func education(edu []portfolio.Education) []string {
	var out []string
	for i, e := range edu {
		if i == maxEducation {
			break
		}
		out = append(out, "• *"+orNA(e.Degree)+"* from *"+orNA(e.School)+"*\n"+
			"  Duration: "+dateRange(e.StartDate, e.EndDate)+"\n"+
			"  Grade: "+orNA(e.Grade))
	}
	return out
}

func certificates(certs []portfolio.Certificate) []string {
	var out []string
	for i, c := range certs {
		if i == maxCertificates {
			break
		}
		out = append(out, "• *"+orNA(c.Name)+"*\n"+
			"  Description: "+truncateOrNA(c.Description, certificateLimit))
	}
	return out
}
