package templater

import (
	"regexp"
	"strconv"
	"strings"

	"gallarr/internal/domain"
	"gallarr/internal/utils"
)

var templatePattern = regexp.MustCompile(`{((\w+?)(:.*?)?)}`)

// Templater renders export file names from a naming template. Variables
// take the form {name} or {name:options}; inside options the placeholder
// <.> stands for the variable's value, so surrounding text disappears
// together with an empty value.
type Templater struct {
	Album   domain.Album
	Chapter domain.Chapter
}

func New(album domain.Album, chapter domain.Chapter) *Templater {
	return &Templater{
		Album:   album,
		Chapter: chapter,
	}
}

func (t *Templater) handleNum(options string) string {
	if options == "" {
		return strconv.Itoa(t.Chapter.Order)
	}

	length, _ := strconv.ParseInt(strings.ReplaceAll(options, ":", ""), 10, 32)
	return utils.PadInt(t.Chapter.Order, int(length))
}

func (t *Templater) handleAlbumTitle(options string) string {
	if t.Album.Title == "" {
		return ""
	}

	cleanString := strings.ReplaceAll(options, ":", "")
	return strings.ReplaceAll(cleanString, "<.>", t.Album.Title)
}

func (t *Templater) handleChapterTitle(options string) string {
	if t.Chapter.Title == "" {
		return ""
	}

	cleanString := strings.ReplaceAll(options, ":", "")
	return strings.ReplaceAll(cleanString, "<.>", t.Chapter.Title)
}

func (t *Templater) ExecTemplate(template string) string {
	newString := template
	for _, match := range templatePattern.FindAllStringSubmatch(template, -1) {
		replace := match[0]

		varName := match[2]
		switch varName {
		case "num":
			options := ""
			if len(match) > 3 {
				options = match[3]
			}
			replace = t.handleNum(options)
		case "album":
			replace = t.handleAlbumTitle(match[3])
		case "title":
			replace = t.handleChapterTitle(match[3])
		}

		newString = strings.Replace(newString, match[0], replace, 1)
	}

	return newString
}
