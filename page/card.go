package page

import (
	"html/template"
	"net/url"
	"strings"

	"golang.org/x/net/idna"

	"github.com/samandartukhtayev/user-directory/models"
)

// eagerAvatars is how many avatars at the top of the page load eagerly
const eagerAvatars = 3

// Card is the view of one user on the page
type Card struct {
	Name        string
	Username    string
	Email       string
	Street      string
	Suite       string
	Zipcode     string
	City        string
	Phone       string
	Website     string
	CompanyName string
	CatchPhrase string
	CompanyBS   string

	AvatarURL  string
	MailtoURL  string
	MapURL     string
	TelURL     template.URL
	WebsiteURL string
	Priority   bool
}

// NewCards builds one card per user, keeping the input order
func NewCards(users []models.User) []Card {
	cards := make([]Card, 0, len(users))
	for i, u := range users {
		cards = append(cards, newCard(u, i < eagerAvatars))
	}
	return cards
}

func newCard(u models.User, priority bool) Card {
	return Card{
		Name:        u.Name,
		Username:    u.Username,
		Email:       u.Email,
		Street:      u.Address.Street,
		Suite:       u.Address.Suite,
		Zipcode:     u.Address.Zipcode,
		City:        u.Address.City,
		Phone:       u.Phone,
		Website:     u.Website,
		CompanyName: u.Company.Name,
		CatchPhrase: u.Company.CatchPhrase,
		CompanyBS:   u.Company.BS,
		AvatarURL:   avatarURL(u.Username),
		MailtoURL:   "mailto:" + u.Email,
		MapURL:      mapURL(u.Address.Geo),
		TelURL:      telURL(u.Phone),
		WebsiteURL:  websiteURL(u.Website),
		Priority:    priority,
	}
}

func avatarURL(username string) string {
	return "https://avatars.dicebear.com/v2/avataaars/" + url.PathEscape(username) + ".svg?options%5Bmood%5D%5B%5D=happy"
}

func mapURL(geo models.Geo) string {
	q := url.Values{}
	q.Set("mlat", geo.Lat)
	q.Set("mlon", geo.Lng)
	return "https://www.openstreetmap.org/?" + q.Encode()
}

// telURL is marked safe: html/template rejects the tel: scheme otherwise.
// The number itself is path-escaped so it cannot break out of the scheme.
func telURL(phone string) template.URL {
	return template.URL("tel:" + url.PathEscape(phone))
}

// websiteURL links to the user's site over https. Internationalized hosts
// are converted to their ASCII form; anything idna rejects is linked as is.
func websiteURL(website string) string {
	host, rest, _ := strings.Cut(website, "/")
	if ascii, err := idna.Lookup.ToASCII(host); err == nil {
		host = ascii
	}
	if rest != "" {
		return "https://" + host + "/" + rest
	}
	return "https://" + host
}
