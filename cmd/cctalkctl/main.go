// Command cctalkctl is a standalone operator tool for talking to a single
// ccTalk peripheral over a serial connection it opens itself — it does
// not go through a running cctalkd, mirroring the original cc_talk_cli's
// direct-bus design.
package main

func main() {
	Execute()
}
