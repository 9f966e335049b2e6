package compositor

// normalizeExportedFenceFd works around a driver quirk in fd export:
// some drivers return fd 0 for a validly-exported sync fence, which is
// indistinguishable on the wire from "no ancillary fd" (see the
// transport's one-fd sentinel encoding). The display loop remaps it to
// -1, which is never a real fd, rather than taking the risk at the wire
// layer where a legitimate fd 0 client socket could exist.
func normalizeExportedFenceFd(fd int) int {
	if fd == 0 {
		return -1
	}
	return fd
}
