package comm

import "localecomm/internal/wire"

// BroadcastPrivate replicates data to the same logical address on every
// other locale via a PUTDATA active message (§4.5: broadcast_private,
// segment-mode-always per SPEC_FULL.md §3 so there is no non-segment
// fallback to special-case). Used by Rollcall to replicate the handler
// fingerprint and by the Diagnostics Plane to propagate flag changes.
func (rt *Runtime) BroadcastPrivate(addr uint64, data []byte) error {
	desc := wire.PutDescriptor{Addr: addr, Data: data}
	payload, err := wire.Encode(desc)
	if err != nil {
		return err
	}
	for locale := int32(0); locale < rt.NumLocales; locale++ {
		if locale == rt.LocaleID {
			continue
		}
		if err := rt.ep.AMRequestMedium(locale, wire.OpPutData, payload); err != nil {
			return err
		}
	}
	return nil
}
