package metrics

import "strconv"

// Service-type tags recognized by the default table. Sources declare one of
// these in configuration; the registry maps source id to tag.
const (
	TypeKaspad      = "kaspad"
	TypeExecution   = "execution"
	TypeViaduct     = "viaduct"
	TypeBuilder     = "builder"
	TypeRPC         = "rpc"
	TypeWallet      = "wallet"
	TypeHealthCheck = "healthcheck"
	TypeTraefik     = "traefik"
)

// DefaultTable registers the pattern sets for the monitored node stack.
func DefaultTable() *Table {
	t := NewTable()

	t.Register(TypeKaspad, []Pattern{
		NewPattern("status", `Accepted \d+ blocks.*via relay`, Const("Synced")),
		NewPattern("status", `Processed \d+ blocks and \d+ headers`, Const("Syncing")),
		NewPattern("tps", `Tx throughput stats: ([\d.]+) u-tps`, Capture(1, "", " TPS")),
		NewPattern("block_rate", `Processed (\d+) blocks and \d+ headers`, Capture(1, "", " blk/10s")),
		NewPattern("headers", `Processed \d+ blocks and (\d+) headers`, Capture(1, "", " hdr")),
	},
		[]string{"tps", "block_rate"},
		[]string{"headers", "status"},
	)

	t.Register(TypeExecution, []Pattern{
		NewPattern("height", `Block added to canonical chain.*number=(\d+)`, Capture(1, "#", "")),
		NewPattern("txs", `txs=(\d+)`, Capture(1, "", " txs")),
		NewPattern("peers", `peers=(\d+)`, Capture(1, "", " peers")),
	},
		[]string{"height"},
		[]string{"txs", "peers"},
	)

	t.Register(TypeViaduct, []Pattern{
		NewPattern("height", `synced to height (\d+)`, Capture(1, "", "")),
		NewPattern("daa", `with score (\d+) to the queue`, func(caps []string) string {
			return "DAA:" + GroupDigits(caps[1])
		}),
		NewPattern("latency", `Sending took (\d+) ms`, Capture(1, "", "ms")),
		NewPattern("queue", `len now (\d+)`, Capture(1, "Q:", "")),
	},
		[]string{"height", "daa"},
		[]string{"latency", "queue"},
	)

	t.Register(TypeBuilder, []Pattern{
		NewPattern("status", `Block built with \d+ transactions`, Const("Built")),
		NewPattern("status", `Building payload on parent`, Const("Building")),
		NewPattern("built_txs", `Block built with (\d+) transactions`, Capture(1, "", " txs")),
	},
		[]string{"built_txs"},
		[]string{"status"},
	)

	t.Register(TypeRPC, []Pattern{
		NewPattern("method", `RPC REQUEST.*method=(\w+)`, Capture(1, "", "")),
		NewPattern("latency", `time=([\d.]+)µs`, Capture(1, "", "µs")),
		NewPattern("latency", `time=([\d.]+)ms`, Capture(1, "", "ms")),
	},
		[]string{"method"},
		[]string{"latency"},
	)

	t.Register(TypeWallet, []Pattern{
		NewPattern("status", `Finished initial sync`, Const("Synced")),
		NewPattern("status", `Connected to kaspa node successfully`, Const("Syncing")),
		NewPattern("status", `Starting wallet server`, Const("Starting")),
	},
		[]string{"status"},
		nil,
	)

	t.Register(TypeHealthCheck, []Pattern{
		NewPattern("lag", `checkpoint block (\d+).*latest: (\d+)`, func(caps []string) string {
			cp, err1 := strconv.ParseUint(caps[1], 10, 64)
			latest, err2 := strconv.ParseUint(caps[2], 10, 64)
			if err1 != nil || err2 != nil {
				return ""
			}
			var lag uint64
			if latest > cp {
				lag = latest - cp
			}
			return "-" + strconv.FormatUint(lag, 10) + " blk"
		}),
	},
		[]string{"lag"},
		nil,
	)

	t.Register(TypeTraefik, []Pattern{
		NewPattern("tls", `No ACME certificate generation required`, Const("SSL OK")),
		NewPattern("errors", `\bERR\b`, Const("errors seen")),
	},
		[]string{"tls"},
		[]string{"errors"},
	)

	return t
}
