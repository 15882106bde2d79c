// Package subjectroster tracks players, their settlement standings, and
// their gold wallets. The treasury reads this data through its own ports;
// the roster never depends on the treasury.
package subjectroster
