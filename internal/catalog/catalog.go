package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

var (
	ErrCourseNotFound = errors.New("course not found")
	ErrVideoNotFound  = errors.New("video not found")
)

type Resource struct {
	Title string `json:"title" yaml:"title"`
	URL   string `json:"url" yaml:"url"`
}

type Video struct {
	ID        int        `json:"id" yaml:"id"`
	Title     string     `json:"title" yaml:"title"`
	URL       string     `json:"url" yaml:"url"`
	Resources []Resource `json:"resources,omitempty" yaml:"resources"`
}

type Section struct {
	ID     int     `json:"id" yaml:"id"`
	Title  string  `json:"title" yaml:"title"`
	Videos []Video `json:"videos" yaml:"videos"`
}

type Course struct {
	ID       int       `json:"id" yaml:"id"`
	Name     string    `json:"name" yaml:"name"`
	Icon     string    `json:"icon" yaml:"icon"`
	Sections []Section `json:"sections" yaml:"sections"`
}

// CourseSummary is the list view of a course
type CourseSummary struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Icon       string `json:"icon"`
	VideoCount int    `json:"videoCount"`
}

// VideoRef locates a video within the natural order of its course
type VideoRef struct {
	SectionID int
	VideoID   int
}

type document struct {
	Courses []Course `yaml:"courses"`
}

// Catalog is the immutable course reference data. Safe for concurrent use.
type Catalog struct {
	courses []Course
	byID    map[int]*Course
	ordered map[int][]VideoRef
}

// Default returns the embedded catalog
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog file, or the embedded catalog when path is empty
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog document
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(doc.Courses)
}

// New builds a catalog from courses already in memory
func New(courses []Course) (*Catalog, error) {
	c := &Catalog{
		courses: courses,
		byID:    make(map[int]*Course, len(courses)),
		ordered: make(map[int][]VideoRef, len(courses)),
	}

	for i := range c.courses {
		course := &c.courses[i]
		if _, dup := c.byID[course.ID]; dup {
			return nil, fmt.Errorf("duplicate course id %d", course.ID)
		}

		seen := make(map[int]bool)
		var refs []VideoRef
		for _, section := range course.Sections {
			for _, video := range section.Videos {
				if seen[video.ID] {
					return nil, fmt.Errorf("course %d: duplicate video id %d", course.ID, video.ID)
				}
				seen[video.ID] = true
				refs = append(refs, VideoRef{SectionID: section.ID, VideoID: video.ID})
			}
		}
		if len(refs) == 0 {
			return nil, fmt.Errorf("course %d has no videos", course.ID)
		}

		c.byID[course.ID] = course
		c.ordered[course.ID] = refs
	}

	return c, nil
}

// Courses returns the list view in catalog order
func (c *Catalog) Courses() []CourseSummary {
	out := make([]CourseSummary, 0, len(c.courses))
	for _, course := range c.courses {
		out = append(out, CourseSummary{
			ID:         course.ID,
			Name:       course.Name,
			Icon:       course.Icon,
			VideoCount: len(c.ordered[course.ID]),
		})
	}
	return out
}

func (c *Catalog) Course(id int) (*Course, error) {
	course, ok := c.byID[id]
	if !ok {
		return nil, ErrCourseNotFound
	}
	return course, nil
}

// OrderedVideos returns the course videos in section order, then video order.
// The returned slice must not be modified.
func (c *Catalog) OrderedVideos(courseID int) ([]VideoRef, error) {
	refs, ok := c.ordered[courseID]
	if !ok {
		return nil, ErrCourseNotFound
	}
	return refs, nil
}

func (c *Catalog) TotalVideos(courseID int) (int, error) {
	refs, ok := c.ordered[courseID]
	if !ok {
		return 0, ErrCourseNotFound
	}
	return len(refs), nil
}

// FindVideo returns the video and the id of the section holding it
func (c *Catalog) FindVideo(courseID, videoID int) (*Video, int, error) {
	course, ok := c.byID[courseID]
	if !ok {
		return nil, 0, ErrCourseNotFound
	}
	for si := range course.Sections {
		section := &course.Sections[si]
		for vi := range section.Videos {
			if section.Videos[vi].ID == videoID {
				return &section.Videos[vi], section.ID, nil
			}
		}
	}
	return nil, 0, ErrVideoNotFound
}
