package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/mileage-tracker/internal/domain"
	"github.com/pkordes/mileage-tracker/internal/service"
)

func TestReportedLocation(t *testing.T) {
	tests := []struct {
		name    string
		ctx     context.Context
		want    domain.Coordinates
		wantErr bool
	}{
		{
			name: "reported position",
			ctx:  service.WithReportedPosition(context.Background(), westminster),
			want: westminster,
		},
		{
			name:    "nothing reported",
			ctx:     context.Background(),
			wantErr: true,
		},
		{
			name:    "client reported failure",
			ctx:     service.WithLocationFailure(context.Background(), "permission denied"),
			wantErr: true,
		},
		{
			name:    "latitude out of range",
			ctx:     service.WithReportedPosition(context.Background(), domain.Coordinates{Lat: 91, Lng: 0}),
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := service.ReportedLocation{}.CurrentPosition(tc.ctx)
			if tc.wantErr {
				require.ErrorIs(t, err, domain.ErrLocationUnavailable)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
