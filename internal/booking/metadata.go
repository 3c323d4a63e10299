package booking

import (
	"fmt"
	"strings"

	"ridedispatch/internal/types"
)

// Metadata keys carried on every checkout session created by this service.
// The recipient identity keys (driverName, driverEmail, driverKey) are
// validated separately by DriverDirectory.Resolve.
const (
	keyCustomerName   = "customerName"
	keyCustomerPhone  = "customerPhone"
	keyPickupAddress  = "pickupAddress"
	keyDropoffAddress = "dropoffAddress"
	keyDate           = "date"
	keyTime           = "time"
	keyVehicle        = "vehicle"
	keyPrice          = "price"

	keyDriverName  = "driverName"
	keyDriverEmail = "driverEmail"
	keyDriverKey   = "driverKey"
)

// requiredMetadataKeys lists the booking fields that must be present and
// non-empty on a completed session before a notification is composed.
var requiredMetadataKeys = []string{
	keyCustomerName,
	keyCustomerPhone,
	keyPickupAddress,
	keyDropoffAddress,
	keyDate,
	keyTime,
	keyVehicle,
	keyPrice,
}

// MetadataForCheckout builds the metadata bag attached to a checkout session.
// The bag round-trips through the payment provider and comes back on the
// completion event, where BookingFromMetadata and DriverDirectory.Resolve
// reconstruct the booking and recipient. driverKey may be empty when the
// deployment uses a single fixed driver.
func MetadataForCheckout(b types.Booking, driver types.DriverIdentity, driverKey string) map[string]string {
	md := map[string]string{
		keyCustomerName:   b.CustomerName,
		keyCustomerPhone:  b.CustomerPhone,
		keyPickupAddress:  b.PickupAddress,
		keyDropoffAddress: b.DropoffAddress,
		keyDate:           b.Date,
		keyTime:           b.Time,
		keyVehicle:        b.Vehicle,
		keyPrice:          b.Price,
		keyDriverName:     driver.Name,
		keyDriverEmail:    driver.Email,
	}
	if driverKey != "" {
		md[keyDriverKey] = driverKey
	}
	return md
}

// BookingFromMetadata extracts the booking fields out of a verified session's
// metadata bag and checks completeness. It fails with an
// event_metadata_incomplete error naming every missing or empty required key;
// a partial booking is never returned. The pipeline fails fast here rather
// than dispatch a partial notification.
func BookingFromMetadata(md map[string]string) (types.Booking, error) {
	var missing []string
	for _, key := range requiredMetadataKeys {
		if md[key] == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return types.Booking{}, types.NewAppErrorWithDetails(
			types.ErrCodeEventMetadataIncomplete,
			fmt.Sprintf("booking metadata missing required keys: %s", strings.Join(missing, ", ")),
			nil,
			map[string]any{"missing_keys": missing},
		)
	}

	return types.Booking{
		CustomerName:   md[keyCustomerName],
		CustomerPhone:  md[keyCustomerPhone],
		PickupAddress:  md[keyPickupAddress],
		DropoffAddress: md[keyDropoffAddress],
		Date:           md[keyDate],
		Time:           md[keyTime],
		Vehicle:        md[keyVehicle],
		Price:          md[keyPrice],
	}, nil
}
