package auth_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/auth"
)

var _ = Describe("Resolver", func() {
	var (
		tokens   *auth.JWTTokenService
		resolver *auth.Resolver
	)

	BeforeEach(func() {
		var err error
		tokens, err = auth.NewJWTTokenService(testSecret, time.Hour)
		Expect(err).NotTo(HaveOccurred())
		resolver = auth.NewResolver(tokens, newStore(), quietLogger())
	})

	issue := func(username string) string {
		token, _, err := tokens.Issue(username)
		Expect(err).NotTo(HaveOccurred())
		return token
	}

	It("resolves a complete identity", func() {
		id, err := resolver.Resolve(context.Background(), issue("opA"))
		Expect(err).NotTo(HaveOccurred())
		Expect(id).To(Equal(internal.Identity{Username: "opA", UpstreamSecret: "secret-A", LocationID: 3}))
	})

	DescribeTable("rejects without a partial identity",
		func(token func() string, expected error, status int) {
			id, err := resolver.Resolve(context.Background(), token())
			Expect(id).To(BeZero())
			Expect(err).To(MatchError(expected))

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(status))
		},
		Entry("no token", func() string { return "" }, internal.ErrMissingToken, 401),
		Entry("garbage token", func() string { return "abc.def.ghi" }, internal.ErrInvalidToken, 401),
		Entry("unknown operator", func() string { return issue("ghost") }, internal.ErrCredentialNotFound, 403),
		Entry("operator without a secret", func() string { return issue("opB") }, internal.ErrCredentialIncomplete, 403),
		Entry("operator without a location", func() string { return issue("opC") }, internal.ErrCredentialIncomplete, 403),
	)
})
