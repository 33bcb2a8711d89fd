package relay_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/core/events"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/normalize"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/relay"
	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal/upstream"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []*events.AuditEvent
}

func (p *capturePublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e.(*events.AuditEvent))
	return nil
}

func (p *capturePublisher) published() []*events.AuditEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*events.AuditEvent(nil), p.events...)
}

var branch = internal.Identity{Username: "opA", UpstreamSecret: "secret-A", LocationID: 3}

func rowIDs(rows []normalize.Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = normalize.Text(r["id"])
	}
	return out
}

var _ = Describe("Service", func() {
	var (
		fake      *fakeUpstream
		svc       *relay.Service
		publisher *capturePublisher
		opts      relay.Options
		ctx       context.Context
	)

	build := func() {
		gateway, err := upstream.NewGateway(upstream.Config{
			Endpoint: fake.URL + "/api/v1",
			Timeout:  2 * time.Second,
		}, slog.New(slog.NewTextHandler(io.Discard, nil)))
		Expect(err).NotTo(HaveOccurred())
		svc = relay.NewService(relay.GatewayClients(gateway), slog.New(slog.NewTextHandler(io.Discard, nil)), opts)
	}

	BeforeEach(func() {
		ctx = context.Background()
		fake = newFakeUpstream()
		publisher = &capturePublisher{}
		opts = relay.Options{Events: publisher}
		build()
	})

	AfterEach(func() {
		fake.Close()
	})

	Describe("ListAssets", func() {
		BeforeEach(func() {
			fake.on(http.MethodGet, "/api/v1/locations/3", http.StatusOK, `{"id":3,"name":"Pune Office"}`)
			fake.onFunc(http.MethodGet, "/api/v1/hardware", func(c call) (int, string) {
				if c.Query.Get("search") != "" {
					return http.StatusOK, `{"total":3,"rows":[{"id":2,"name":"search-two"},{"id":4},{"id":5}]}`
				}
				return http.StatusOK, `{"total":3,"rows":[{"id":1},{"id":2,"name":"primary-two"},{"id":3}]}`
			})
		})

		It("looks up the name, then queries by location id, then by name", func() {
			_, err := svc.ListAssets(ctx, branch, url.Values{"limit": {"50"}})
			Expect(err).NotTo(HaveOccurred())

			calls := fake.recorded()
			Expect(calls).To(HaveLen(3))
			Expect(calls[0].Path).To(Equal("/api/v1/locations/3"))

			Expect(calls[1].Path).To(Equal("/api/v1/hardware"))
			Expect(calls[1].Query.Get("location_id")).To(Equal("3"))
			Expect(calls[1].Query.Get("limit")).To(Equal("50"))
			Expect(calls[1].Query.Has("search")).To(BeFalse())

			Expect(calls[2].Query.Get("search")).To(Equal("Pune Office"))
			Expect(calls[2].Query.Get("sort")).To(Equal("name"))
			Expect(calls[2].Query.Get("order")).To(Equal("asc"))
			Expect(calls[2].Query.Get("limit")).To(Equal("50"))
			Expect(calls[2].Query.Has("location_id")).To(BeFalse())

			for _, c := range calls {
				Expect(c.Auth).To(Equal("Bearer secret-A"))
			}
		})

		It("contains every id from both passes exactly once, first seen wins", func() {
			listing, err := svc.ListAssets(ctx, branch, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(rowIDs(listing.Rows)).To(Equal([]string{"1", "2", "3", "4", "5"}))
			Expect(listing.Rows[1]["name"]).To(Equal("primary-two"))
			Expect(listing.PrimaryRows).To(Equal(3))
			Expect(listing.SearchRows).To(Equal(3))

			payload := listing.Payload.(map[string]any)
			Expect(payload["total"]).To(Equal(5))
			Expect(payload["rows"]).To(HaveLen(5))
		})

		It("keeps the caller's own sort and order on the search pass", func() {
			_, err := svc.ListAssets(ctx, branch, url.Values{"sort": {"asset_tag"}, "order": {"desc"}})
			Expect(err).NotTo(HaveOccurred())
			search := fake.recorded()[2]
			Expect(search.Query.Get("sort")).To(Equal("asset_tag"))
			Expect(search.Query.Get("order")).To(Equal("desc"))
		})

		It("overrides a caller-supplied location_id on the primary pass", func() {
			_, err := svc.ListAssets(ctx, branch, url.Values{"location_id": {"99"}})
			Expect(err).NotTo(HaveOccurred())
			Expect(fake.recorded()[1].Query["location_id"]).To(Equal([]string{"3"}))
		})

		It("skips the search pass when the name lookup fails", func() {
			fake.on(http.MethodGet, "/api/v1/locations/3", http.StatusInternalServerError, `{"message":"boom"}`)

			listing, err := svc.ListAssets(ctx, branch, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(listing.LocationName).To(BeEmpty())
			Expect(rowIDs(listing.Rows)).To(Equal([]string{"1", "2", "3"}))
			Expect(fake.recorded()).To(HaveLen(2))
		})

		It("fails when the primary pass fails", func() {
			fake.on(http.MethodGet, "/api/v1/hardware", http.StatusUnauthorized, `{"message":"Unauthenticated."}`)
			_, err := svc.ListAssets(ctx, branch, nil)
			Expect(err).To(MatchError("Unauthenticated."))
		})

		It("never calls upstream for a partial identity", func() {
			_, err := svc.ListAssets(ctx, internal.Identity{Username: "opA", LocationID: 3}, nil)
			Expect(err).To(MatchError(internal.ErrCredentialIncomplete))

			_, err = svc.ListAssets(ctx, internal.Identity{Username: "opA", UpstreamSecret: "s"}, nil)
			Expect(err).To(MatchError(internal.ErrCredentialIncomplete))
			Expect(fake.recorded()).To(BeEmpty())
		})
	})

	Describe("CheckoutAsset", func() {
		BeforeEach(func() {
			fake.on(http.MethodPost, "/api/v1/hardware/42/checkout", http.StatusOK, `{"status":"success","messages":"Asset checked out successfully."}`)
		})

		It("fills branch location defaults alongside the caller's fields", func() {
			_, err := svc.CheckoutAsset(ctx, branch, 42, map[string]any{"assigned_to": 7})
			Expect(err).NotTo(HaveOccurred())

			body := fake.recorded()[0].Body
			Expect(body).To(HaveKeyWithValue("assigned_to", BeNumerically("==", 7)))
			Expect(body).To(HaveKeyWithValue("location_id", BeNumerically("==", 3)))
			Expect(body).To(HaveKeyWithValue("assigned_location", BeNumerically("==", 3)))
		})

		It("lets caller-supplied location values win and replaces nulls", func() {
			in := map[string]any{"location_id": 9, "assigned_location": nil}
			_, err := svc.CheckoutAsset(ctx, branch, 42, in)
			Expect(err).NotTo(HaveOccurred())

			body := fake.recorded()[0].Body
			Expect(body).To(HaveKeyWithValue("location_id", BeNumerically("==", 9)))
			Expect(body).To(HaveKeyWithValue("assigned_location", BeNumerically("==", 3)))
			Expect(in["assigned_location"]).To(BeNil())
		})

		It("publishes an audit event for the outcome", func() {
			_, err := svc.CheckoutAsset(ctx, branch, 42, map[string]any{})
			Expect(err).NotTo(HaveOccurred())

			published := publisher.published()
			Expect(published).To(HaveLen(1))
			Expect(published[0].EventType()).To(Equal(events.EventTypeAssetCheckedOut))
			Expect(published[0].Operator).To(Equal("opA"))
			Expect(published[0].LocationID).To(Equal(int64(3)))
			Expect(published[0].ResourceID).To(Equal(int64(42)))
			Expect(published[0].Outcome).To(Equal(events.OutcomeSucceeded))
		})

		It("reports the upstream message exactly", func() {
			fake.on(http.MethodPost, "/api/v1/hardware/42/checkout", http.StatusInternalServerError, `{"message":"The asset is already checked out."}`)
			_, err := svc.CheckoutAsset(ctx, branch, 42, map[string]any{"assigned_to": 7})
			Expect(err).To(HaveOccurred())

			ue, ok := upstream.AsError(err)
			Expect(ok).To(BeTrue())
			Expect(ue.Message).To(Equal("The asset is already checked out."))
			Expect(publisher.published()[0].Outcome).To(Equal(events.OutcomeFailed))
		})
	})

	Describe("CheckinAsset", func() {
		It("applies the same location defaults", func() {
			fake.on(http.MethodPost, "/api/v1/hardware/42/checkin", http.StatusOK, `{"status":"success"}`)
			_, err := svc.CheckinAsset(ctx, branch, 42, map[string]any{"note": "returned"})
			Expect(err).NotTo(HaveOccurred())

			body := fake.recorded()[0].Body
			Expect(body).To(HaveKeyWithValue("note", "returned"))
			Expect(body).To(HaveKeyWithValue("location_id", BeNumerically("==", 3)))
			Expect(body).To(HaveKeyWithValue("assigned_location", BeNumerically("==", 3)))
			Expect(publisher.published()[0].EventType()).To(Equal(events.EventTypeAssetCheckedIn))
		})
	})

	Describe("UpdateAsset", func() {
		It("passes the body through as a PATCH", func() {
			fake.on(http.MethodPatch, "/api/v1/hardware/42", http.StatusOK, `{"status":"success","payload":{"id":42}}`)
			_, err := svc.UpdateAsset(ctx, branch, 42, map[string]any{"status_id": 4})
			Expect(err).NotTo(HaveOccurred())

			c := fake.recorded()[0]
			Expect(c.Method).To(Equal(http.MethodPatch))
			Expect(c.Body).To(Equal(map[string]any{"status_id": float64(4)}))
			Expect(publisher.published()[0].EventType()).To(Equal(events.EventTypeAssetUpdated))
		})

		It("treats a 200 carrying status=error as a failure", func() {
			fake.on(http.MethodPatch, "/api/v1/hardware/42", http.StatusOK, `{"status":"error","messages":{"status_id":["The selected status id is invalid."]}}`)
			_, err := svc.UpdateAsset(ctx, branch, 42, map[string]any{"status_id": 99})
			Expect(err).To(MatchError("status_id: The selected status id is invalid."))
		})
	})

	Describe("GetAsset", func() {
		BeforeEach(func() {
			fake.on(http.MethodGet, "/api/v1/hardware/7", http.StatusOK, `{"id":7,"location":{"id":8,"name":"Elsewhere"},"rtd_location":{"id":8}}`)
			fake.on(http.MethodGet, "/api/v1/hardware/8", http.StatusOK, `{"id":8,"location":null,"rtd_location":{"id":3}}`)
		})

		It("returns the raw record without a location check by default", func() {
			payload, err := svc.GetAsset(ctx, branch, 7)
			Expect(err).NotTo(HaveOccurred())
			Expect(payload).To(HaveKeyWithValue("location", HaveKeyWithValue("name", "Elsewhere")))
		})

		Context("with location scope enforced", func() {
			BeforeEach(func() {
				opts.EnforceLocationScope = true
				build()
			})

			It("rejects a record from another branch", func() {
				_, err := svc.GetAsset(ctx, branch, 7)
				Expect(err).To(MatchError(internal.ErrOutOfBranchScope))
			})

			It("accepts a record whose default location is the branch", func() {
				_, err := svc.GetAsset(ctx, branch, 8)
				Expect(err).NotTo(HaveOccurred())
			})
		})
	})

	Describe("users", func() {
		It("forces the branch location onto created users", func() {
			fake.on(http.MethodPost, "/api/v1/users", http.StatusOK, `{"status":"success","payload":{"id":55,"username":"new"}}`)
			_, err := svc.CreateUser(ctx, branch, map[string]any{"username": "new", "location_id": 99})
			Expect(err).NotTo(HaveOccurred())

			Expect(fake.recorded()[0].Body).To(HaveKeyWithValue("location_id", BeNumerically("==", 3)))
			ev := publisher.published()[0]
			Expect(ev.EventType()).To(Equal(events.EventTypeUserCreated))
			Expect(ev.ResourceID).To(Equal(int64(55)))
		})

		It("passes list filters through without adding a location", func() {
			fake.on(http.MethodGet, "/api/v1/users", http.StatusOK, `{"total":0,"rows":[]}`)
			_, err := svc.ListUsers(ctx, branch, url.Values{"search": {"asha"}})
			Expect(err).NotTo(HaveOccurred())

			q := fake.recorded()[0].Query
			Expect(q.Get("search")).To(Equal("asha"))
			Expect(q.Has("location_id")).To(BeFalse())
		})

		It("finds a single user by username", func() {
			fake.on(http.MethodGet, "/api/v1/users", http.StatusOK, `{"total":1,"rows":[{"id":5,"username":"opA"}]}`)
			user, err := svc.LookupUser(ctx, branch, "opA")
			Expect(err).NotTo(HaveOccurred())
			Expect(user["username"]).To(Equal("opA"))
			Expect(fake.recorded()[0].Query.Get("username")).To(Equal("opA"))
		})

		It("reports an unknown username as not found", func() {
			fake.on(http.MethodGet, "/api/v1/users", http.StatusOK, `{"total":0,"rows":[]}`)
			_, err := svc.LookupUser(ctx, branch, "ghost")
			Expect(errors.Is(err, internal.ErrUserNotFound)).To(BeTrue())
		})

		It("reads a user's assets with query passthrough", func() {
			fake.on(http.MethodGet, "/api/v1/users/5/hardware", http.StatusOK, `{"total":0,"rows":[]}`)
			_, err := svc.GetUserAssets(ctx, branch, 5, url.Values{"limit": {"10"}})
			Expect(err).NotTo(HaveOccurred())
			Expect(fake.recorded()[0].Query.Get("limit")).To(Equal("10"))
		})
	})

	Describe("catalog", func() {
		It("returns the caller's own location", func() {
			fake.on(http.MethodGet, "/api/v1/locations/3", http.StatusOK, `{"id":3,"name":"Pune Office"}`)
			payload, err := svc.GetLocation(ctx, branch)
			Expect(err).NotTo(HaveOccurred())
			Expect(payload).To(HaveKeyWithValue("name", "Pune Office"))
		})

		It("returns company rows without the envelope", func() {
			fake.on(http.MethodGet, "/api/v1/companies", http.StatusOK, `{"total":2,"rows":[{"id":1,"name":"Acme"},{"id":2,"name":"Globex"}]}`)
			rows, err := svc.ListCompanies(ctx, branch, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(rowIDs(rows)).To(Equal([]string{"1", "2"}))
		})

		It("returns an empty slice for an unexpected company payload", func() {
			fake.on(http.MethodGet, "/api/v1/companies", http.StatusOK, `{"unexpected":true}`)
			rows, err := svc.ListCompanies(ctx, branch, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).NotTo(BeNil())
			Expect(rows).To(BeEmpty())
		})

		It("lists status labels and locations", func() {
			fake.on(http.MethodGet, "/api/v1/statuslabels", http.StatusOK, `{"total":0,"rows":[]}`)
			fake.on(http.MethodGet, "/api/v1/locations", http.StatusOK, `{"total":0,"rows":[]}`)

			_, err := svc.ListStatusLabels(ctx, branch, nil)
			Expect(err).NotTo(HaveOccurred())
			_, err = svc.ListLocations(ctx, branch, url.Values{"search": {"Pune"}})
			Expect(err).NotTo(HaveOccurred())

			calls := fake.recorded()
			Expect(calls[0].Path).To(Equal("/api/v1/statuslabels"))
			Expect(calls[1].Query.Get("search")).To(Equal("Pune"))
		})
	})
})
