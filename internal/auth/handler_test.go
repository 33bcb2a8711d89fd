package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/auth"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/normalize"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/transport"
)

type fakeDirectory struct {
	row   normalize.Row
	err   error
	asked internal.Identity
}

func (f *fakeDirectory) LookupUser(_ context.Context, id internal.Identity, _ string) (normalize.Row, error) {
	f.asked = id
	return f.row, f.err
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == internal.SessionCookieName {
			return c
		}
	}
	return nil
}

var _ = Describe("Handler", func() {
	var (
		tokens    *auth.JWTTokenService
		handler   *auth.Handler
		directory *fakeDirectory
	)

	BeforeEach(func() {
		var err error
		tokens, err = auth.NewJWTTokenService(testSecret, 24*time.Hour)
		Expect(err).NotTo(HaveOccurred())
		store := newStore()
		directory = &fakeDirectory{row: normalize.Row{"id": 5, "username": "opA"}}
		handler = auth.NewHandler(
			transport.NewBaseHandler(quietLogger()),
			auth.NewService(store, tokens, quietLogger()),
			auth.NewResolver(tokens, store, quietLogger()),
			directory,
			tokens.TTL(),
			auth.SecureAuto,
		)
	})

	login := func(body string, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
		for _, m := range mutate {
			m(req)
		}
		rec := httptest.NewRecorder()
		handler.Login(rec, req)
		return rec
	}

	Describe("Login", func() {
		It("sets an http-only lax session cookie and returns a sanitized profile", func() {
			rec := login(`{"username":"opA","password":"correct"}`)
			Expect(rec.Code).To(Equal(http.StatusOK))

			c := sessionCookie(rec)
			Expect(c).NotTo(BeNil())
			Expect(c.HttpOnly).To(BeTrue())
			Expect(c.SameSite).To(Equal(http.SameSiteLaxMode))
			Expect(c.Path).To(Equal("/"))
			Expect(c.MaxAge).To(Equal(86400))
			Expect(c.Secure).To(BeFalse())

			claims, err := tokens.Verify(c.Value)
			Expect(err).NotTo(HaveOccurred())
			Expect(claims.Username).To(Equal("opA"))

			Expect(rec.Body.String()).NotTo(ContainSubstring("secret-A"))
			Expect(rec.Body.String()).NotTo(ContainSubstring("$2a$"))
			var resp map[string]any
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["user"]).To(HaveKeyWithValue("username", "opA"))
		})

		It("marks the cookie secure behind an HTTPS proxy", func() {
			rec := login(`{"username":"opA","password":"correct"}`, func(r *http.Request) {
				r.Header.Set("X-Forwarded-Proto", "https")
			})
			Expect(sessionCookie(rec).Secure).To(BeTrue())
		})

		It("sets no cookie for a wrong password", func() {
			rec := login(`{"username":"opA","password":"incorrect"}`)
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(sessionCookie(rec)).To(BeNil())
		})

		It("returns 400 with Invalid input for a schema violation", func() {
			rec := login(`{"username":"op","password":"x"}`)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(rec.Body.String()).To(ContainSubstring("Invalid input"))
			Expect(sessionCookie(rec)).To(BeNil())
		})
	})

	Describe("Logout", func() {
		It("expires the session cookie", func() {
			rec := httptest.NewRecorder()
			handler.Logout(rec, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))

			c := sessionCookie(rec)
			Expect(c).NotTo(BeNil())
			Expect(c.Value).To(BeEmpty())
			Expect(c.MaxAge).To(BeNumerically("<", 0))
		})
	})

	Describe("AuthMiddleware", func() {
		var (
			reached bool
			seen    internal.Identity
			guarded http.Handler
		)

		BeforeEach(func() {
			reached = false
			guarded = handler.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				reached = true
				seen, _ = internal.IdentityFromContext(r.Context())
				w.WriteHeader(http.StatusNoContent)
			}))
		})

		serve := func(token string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodGet, "/api/hardware", nil)
			if token != "" {
				req.AddCookie(&http.Cookie{Name: internal.SessionCookieName, Value: token})
			}
			rec := httptest.NewRecorder()
			guarded.ServeHTTP(rec, req)
			return rec
		}

		It("passes a complete identity to the next handler", func() {
			token, _, err := tokens.Issue("opA")
			Expect(err).NotTo(HaveOccurred())

			rec := serve(token)
			Expect(rec.Code).To(Equal(http.StatusNoContent))
			Expect(reached).To(BeTrue())
			Expect(seen.LocationID).To(Equal(int64(3)))
			Expect(seen.UpstreamSecret).To(Equal("secret-A"))
		})

		It("answers 401 without a cookie", func() {
			rec := serve("")
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(rec.Body.String()).To(ContainSubstring("No token found"))
			Expect(reached).To(BeFalse())
		})

		It("answers 401 for an expired cookie", func() {
			past, err := auth.NewJWTTokenService(testSecret, time.Hour, auth.WithClock(func() time.Time {
				return time.Now().Add(-2 * time.Hour)
			}))
			Expect(err).NotTo(HaveOccurred())
			token, _, err := past.Issue("opA")
			Expect(err).NotTo(HaveOccurred())

			rec := serve(token)
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(reached).To(BeFalse())
		})

		It("answers 403 when the operator has no usable credential", func() {
			token, _, err := tokens.Issue("opB")
			Expect(err).NotTo(HaveOccurred())

			rec := serve(token)
			Expect(rec.Code).To(Equal(http.StatusForbidden))
			Expect(rec.Body.String()).NotTo(ContainSubstring("secret"))
			Expect(reached).To(BeFalse())
		})
	})

	Describe("CurrentUser", func() {
		It("returns the identity and the upstream user record", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/auth/user", nil)
			id := internal.Identity{Username: "opA", UpstreamSecret: "secret-A", LocationID: 3}
			req = req.WithContext(internal.ContextWithIdentity(req.Context(), id))
			rec := httptest.NewRecorder()

			handler.CurrentUser(rec, req)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(directory.asked).To(Equal(id))

			var resp map[string]any
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp).To(HaveKeyWithValue("username", "opA"))
			Expect(resp).To(HaveKeyWithValue("locationId", BeNumerically("==", 3)))
			Expect(resp["user"]).To(HaveKeyWithValue("username", "opA"))
			Expect(rec.Body.String()).NotTo(ContainSubstring("secret-A"))
		})

		It("answers 404 when the inventory has no such user", func() {
			directory.err = internal.ErrUserNotFound
			req := httptest.NewRequest(http.MethodGet, "/api/auth/user", nil)
			req = req.WithContext(internal.ContextWithIdentity(req.Context(), internal.Identity{Username: "opA", UpstreamSecret: "s", LocationID: 3}))
			rec := httptest.NewRecorder()

			handler.CurrentUser(rec, req)
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})
	})
})
