package auth_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/auth"
)

var _ = Describe("Service", func() {
	var (
		tokens *auth.JWTTokenService
		svc    *auth.Service
	)

	BeforeEach(func() {
		var err error
		tokens, err = auth.NewJWTTokenService(testSecret, 24*time.Hour)
		Expect(err).NotTo(HaveOccurred())
		svc = auth.NewService(newStore(), tokens, quietLogger())
	})

	It("issues a token that verifies to the operator", func() {
		session, err := svc.Login(context.Background(), auth.LoginDTO{Username: "opA", Password: "correct"})
		Expect(err).NotTo(HaveOccurred())
		Expect(session.Profile.Username).To(Equal("opA"))
		Expect(session.Profile.LocationID).To(Equal(int64(3)))

		claims, err := tokens.Verify(session.Token)
		Expect(err).NotTo(HaveOccurred())
		Expect(claims.Username).To(Equal("opA"))
	})

	It("still logs in an operator whose credential is incomplete", func() {
		session, err := svc.Login(context.Background(), auth.LoginDTO{Username: "opB", Password: "correct"})
		Expect(err).NotTo(HaveOccurred())
		Expect(session.Token).NotTo(BeEmpty())
	})

	DescribeTable("rejects bad credentials uniformly",
		func(username, password string) {
			session, err := svc.Login(context.Background(), auth.LoginDTO{Username: username, Password: password})
			Expect(session).To(BeNil())
			Expect(err).To(MatchError(internal.ErrInvalidCredentials))
		},
		Entry("wrong password", "opA", "incorrect"),
		Entry("unknown user", "ghost", "correct"),
		Entry("username differing in case", "OPA", "correct"),
	)

	It("validates the payload before looking anything up", func() {
		_, err := svc.Login(context.Background(), auth.LoginDTO{Username: "op", Password: "correct"})
		appErr, ok := internal.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.StatusCode).To(Equal(400))
		Expect(appErr.Message).To(Equal("Invalid input"))
	})
})

var _ = Describe("DecodeLogin", func() {
	It("accepts a valid body", func() {
		dto, err := auth.DecodeLogin([]byte(`{"username":"opA","password":"secret1"}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(dto).To(Equal(auth.LoginDTO{Username: "opA", Password: "secret1"}))
	})

	DescribeTable("rejects invalid bodies with a 400",
		func(body string) {
			_, err := auth.DecodeLogin([]byte(body))
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(400))
		},
		Entry("short username", `{"username":"ab","password":"secret1"}`),
		Entry("short password", `{"username":"opA","password":"12345"}`),
		Entry("missing password", `{"username":"opA"}`),
		Entry("wrong type", `{"username":123,"password":"secret1"}`),
		Entry("not an object", `["opA","secret1"]`),
		Entry("not JSON", `username=opA`),
	)
})

var _ = Describe("DecodeLogin field errors", func() {
	fieldsOf := func(body string) []string {
		_, err := auth.DecodeLogin([]byte(body))
		appErr, ok := internal.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.Code).To(Equal(internal.ErrCodeValidationFailed))
		details, ok := appErr.Details.(internal.ValidationErrors)
		Expect(ok).To(BeTrue())
		var fields []string
		for _, fe := range details.Errors {
			Expect(fe.Message).NotTo(BeEmpty())
			fields = append(fields, fe.Field)
		}
		return fields
	}

	It("names the short username", func() {
		Expect(fieldsOf(`{"username":"ab","password":"secret1"}`)).To(ConsistOf("username"))
	})

	It("names the missing password", func() {
		Expect(fieldsOf(`{"username":"opA"}`)).To(ConsistOf("password"))
	})

	It("names every missing field", func() {
		Expect(fieldsOf(`{}`)).To(ConsistOf("password", "username"))
	})

	It("names a mistyped field", func() {
		Expect(fieldsOf(`{"username":123,"password":"secret1"}`)).To(ConsistOf("username"))
	})

	It("reports a non-object body as body", func() {
		Expect(fieldsOf(`["opA","secret1"]`)).To(ConsistOf("body"))
	})
})

var _ = Describe("HashPassword", func() {
	It("produces a hash the login check accepts", func() {
		h, err := auth.HashPassword("correct horse")
		Expect(err).NotTo(HaveOccurred())
		Expect(h).To(HavePrefix("$2a$"))
	})
})
