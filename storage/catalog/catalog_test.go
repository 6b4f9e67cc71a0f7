package catalog

import "testing"

func TestNormalizePrivacy(t *testing.T) {
	cases := []struct {
		in   string
		want Privacy
	}{
		{"public", PrivacyPublic},
		{"PRIVATE", PrivacyPrivate},
		{" unlisted ", PrivacyUnlisted},
		{"", PrivacyPublic},
		{"secret", PrivacyPublic},
	}

	for _, tc := range cases {
		if got := NormalizePrivacy(tc.in); got != tc.want {
			t.Errorf("NormalizePrivacy(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCategoryValid(t *testing.T) {
	for _, c := range Categories() {
		if !c.Valid() {
			t.Errorf("expected %q to be valid", c)
		}
	}

	if Category("gif").Valid() {
		t.Error("expected unknown category to be invalid")
	}
}

func TestListQueryWindow(t *testing.T) {
	cases := []struct {
		name       string
		q          ListQuery
		wantOffset int
		wantLimit  int
	}{
		{"defaults", ListQuery{}, 0, DefaultPageSize},
		{"explicit", ListQuery{Page: 3, PageSize: 10}, 20, 10},
		{"zero page", ListQuery{Page: 0, PageSize: 10}, 0, 10},
		{"oversized page size", ListQuery{Page: 1, PageSize: 10_000}, 0, MaxPageSize},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			offset, limit := tc.q.Window()
			if offset != tc.wantOffset || limit != tc.wantLimit {
				t.Fatalf("got offset %d limit %d, want %d/%d", offset, limit, tc.wantOffset, tc.wantLimit)
			}
		})
	}
}
