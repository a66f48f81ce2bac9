package cms

// Profile is the site owner's profile.
type Profile struct {
	Name       string
	Headline   string
	Location   string
	Bio        string
	Skills     []string
	Experience []Experience
}

// Experience is one entry in a profile's work history.
type Experience struct {
	Role    string
	Company string
	Period  string
	Summary string
}

// Project is a portfolio project.
type Project struct {
	Title       string
	Summary     string
	Description string
	Role        string
	TechStack   []string
	Highlights  []string
	URL         string
}

// AIProject is an AI/ML project write-up.
type AIProject struct {
	Title       string
	Summary     string
	Description string
	Models      []string
	Techniques  []string
	Outcomes    []string
}

// AIShowcase is a showcase entry for an AI demo.
type AIShowcase struct {
	Title       string
	Summary     string
	Description string
	DemoURL     string
	Tags        []string
}

func decodeProfile(f fields) Profile {
	p := Profile{
		Name:     f.text("name", "fullName"),
		Headline: f.text("headline", "title", "role"),
		Location: f.text("location"),
		Bio:      f.text("bio", "about", "summary"),
		Skills:   f.list("skills"),
	}
	for _, item := range f.objects("experience", "experiences") {
		p.Experience = append(p.Experience, Experience{
			Role:    item.text("role", "title", "position"),
			Company: item.text("company", "organization"),
			Period:  item.period(),
			Summary: item.text("summary", "description"),
		})
	}
	return p
}

func decodeProject(f fields) Project {
	return Project{
		Title:       f.text("title", "name"),
		Summary:     f.text("summary", "excerpt", "tagline"),
		Description: f.text("description", "body", "content", "text"),
		Role:        f.text("role"),
		TechStack:   f.list("techStack", "technologies", "stack"),
		Highlights:  f.list("highlights", "features"),
		URL:         f.text("url", "link", "liveUrl"),
	}
}

func decodeAIProject(f fields) AIProject {
	return AIProject{
		Title:       f.text("title", "name"),
		Summary:     f.text("summary", "excerpt"),
		Description: f.text("description", "body", "content", "text"),
		Models:      f.list("models", "aiModels"),
		Techniques:  f.list("techniques", "methods"),
		Outcomes:    f.list("outcomes", "results"),
	}
}

func decodeAIShowcase(f fields) AIShowcase {
	return AIShowcase{
		Title:       f.text("title", "name"),
		Summary:     f.text("summary", "excerpt"),
		Description: f.text("description", "body", "content", "text"),
		DemoURL:     f.text("demoUrl", "url", "link"),
		Tags:        f.list("tags", "categories"),
	}
}
