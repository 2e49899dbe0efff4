package portfolio

// NormalizeForStorage marks entries without an end date as ongoing. The
// dashboard sends an empty end date for "current" entries while the stored
// document uses the Present sentinel.
func NormalizeForStorage(pt *Patch) {
	if pt.Projects != nil {
		projects := append([]Project(nil), (*pt.Projects)...)
		for i := range projects {
			projects[i].EndDate = toSentinel(projects[i].EndDate)
		}
		pt.Projects = &projects
	}
	if pt.Experiences != nil {
		exps := append([]Experience(nil), (*pt.Experiences)...)
		for i := range exps {
			exps[i].EndDate = toSentinel(exps[i].EndDate)
		}
		pt.Experiences = &exps
	}
	if pt.Education != nil {
		edu := append([]Education(nil), (*pt.Education)...)
		for i := range edu {
			edu[i].EndDate = toSentinel(edu[i].EndDate)
		}
		pt.Education = &edu
	}
}

// NormalizeForDisplay is the inverse of NormalizeForStorage: ongoing entries
// get an empty end date. Absent collections become empty ones so clients can
// always iterate.
func NormalizeForDisplay(p Portfolio) Portfolio {
	out := p
	out.Projects = make([]Project, len(p.Projects))
	for i, pr := range p.Projects {
		pr.EndDate = fromSentinel(pr.EndDate)
		if pr.Skills == nil {
			pr.Skills = []ProjectSkill{}
		}
		out.Projects[i] = pr
	}
	out.Experiences = make([]Experience, len(p.Experiences))
	for i, e := range p.Experiences {
		e.EndDate = fromSentinel(e.EndDate)
		out.Experiences[i] = e
	}
	out.Education = make([]Education, len(p.Education))
	for i, e := range p.Education {
		e.EndDate = fromSentinel(e.EndDate)
		out.Education[i] = e
	}
	if out.SocialLinks == nil {
		out.SocialLinks = []SocialLink{}
	}
	if out.Skills == nil {
		out.Skills = []Skill{}
	}
	if out.Certificates == nil {
		out.Certificates = []Certificate{}
	}
	return out
}

func toSentinel(endDate string) string {
	if endDate == "" {
		return Present
	}
	return endDate
}

func fromSentinel(endDate string) string {
	if endDate == Present {
		return ""
	}
	return endDate
}
