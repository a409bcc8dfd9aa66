package oauth

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/freekieb7/neurovault-users/internal/form"
)

type ApplicationForm struct {
	Name                   string `form:"name" validate:"required,max=255"`
	ClientType             string `form:"client_type" validate:"required,oneof=confidential public"`
	AuthorizationGrantType string `form:"authorization_grant_type" validate:"required,oneof=authorization-code implicit password client-credentials"`
	RedirectURIs           string `form:"redirect_uris"`
	WebsiteURL             string `form:"website_url" validate:"omitempty,url,max=200"`
}

func ApplicationFormFromRequest(r *http.Request) ApplicationForm {
	return ApplicationForm{
		Name:                   strings.TrimSpace(r.PostFormValue("name")),
		ClientType:             r.PostFormValue("client_type"),
		AuthorizationGrantType: r.PostFormValue("authorization_grant_type"),
		RedirectURIs:           strings.TrimSpace(r.PostFormValue("redirect_uris")),
		WebsiteURL:             strings.TrimSpace(r.PostFormValue("website_url")),
	}
}

func ApplicationFormFrom(app Application) ApplicationForm {
	return ApplicationForm{
		Name:                   app.Name,
		ClientType:             app.ClientType,
		AuthorizationGrantType: app.AuthorizationGrantType,
		RedirectURIs:           strings.Join(app.RedirectURIs, " "),
		WebsiteURL:             app.WebsiteURL,
	}
}

// RedirectURIList splits the whitespace separated redirect URIs.
func (f ApplicationForm) RedirectURIList() []string {
	uris := strings.Fields(f.RedirectURIs)
	if uris == nil {
		return []string{}
	}
	return uris
}

func (f ApplicationForm) Validate(v *form.Validator) form.Errors {
	errs := v.Struct(f)

	uris := f.RedirectURIList()
	if len(uris) == 0 && (f.AuthorizationGrantType == GrantAuthorizationCode || f.AuthorizationGrantType == GrantImplicit) {
		errs.Add("redirect_uris", "Redirect URIs are required for this grant type.")
	}
	for _, raw := range uris {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" || u.Fragment != "" {
			errs.Add("redirect_uris", "Enter valid absolute redirect URIs.")
			break
		}
	}

	return errs
}
