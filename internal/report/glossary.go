package report

// Glossary entries printed on the last page of every PDF report.
var Glossary = []struct{ Term, Text string }{
	{"RTT", "Round-trip time of a probe packet sent on a TX port and received back on its mapped RX port."},
	{"Jitter", "Mean variation between consecutive RTT samples."},
	{"IAT", "Inter-arrival time between consecutive packets on a port."},
	{"MAE", "Mean absolute error of the inter-arrival time against the configured rate. It measures rate precision."},
	{"L1 rate", "Bit rate including preamble, start frame delimiter and inter-frame gap (20 bytes per frame)."},
	{"L2 rate", "Bit rate of the Ethernet frames only."},
	{"Packet loss", "Frames sent on the mapped TX ports that never arrived on the RX ports."},
	{"Out of order", "Frames that arrived with a lower sequence number than one already received."},
	{"Port mapping", "Association of a transmit port with the receive port expected to observe its traffic."},
	{"Stream", "A logical traffic pattern (frame size, rate, encapsulation) generated on one or more ports."},
	{"Frame size", "Ethernet frame length in bytes including the 4 byte FCS."},
	{"RFC2544", "Benchmarking methodology measuring throughput, latency, frame loss rate and back-to-back frames."},
	{"IMIX", "Internet mix: a traffic profile combining several frame sizes in fixed proportions."},
}

func drawGlossary(d *document) {
	for _, g := range Glossary {
		d.pdf.SetFont("Helvetica", "B", 10)
		d.pdf.CellFormat(35, 5, d.tr(g.Term), "", 0, "L", false, 0, "")
		d.pdf.SetFont("Helvetica", "", 10)
		d.pdf.MultiCell(0, 5, d.tr(g.Text), "", "L", false)
		d.pdf.Ln(2)
	}
}
