/*
Package fx implements exact fixed-point money and exchange-rate arithmetic
for currency trading.
Amounts and rates are never held in binary floating point: each value is a
pair of integers (whole, frac) at a fixed number of fractional digits, and
every conversion rounds in the direction that never gives away value.

# Features

  - Immutable values, ensuring safe usage across multiple goroutines
  - Lossless parsing and formatting of decimal strings
  - Sign-normalizing addition and ordering of amounts
  - Currency conversion in both directions with conservative rounding
  - Bridges to the [decimal] package for downstream valuation

# Representation

An [Amount] has two fractional digits and a [Rate] has four.
The value of a pair is whole + frac / 10^scale, and both fields carry the
sign of the value: -1.05 is (-1, -5), and -0.05 is (0, -5).
A pair with one field strictly positive and the other strictly negative is
never constructed.
A Rate is always positive; the zero value of Rate is rejected by the
conversion functions.

A [Currency] is an integer index into generated tables holding ISO 4217
codes and names.

# Supported Ranges

The integer part of both types is limited to [MaxWhole], which is 14 digits.
This keeps every intermediate product within 128 bits and every minor-unit
count within int64.

# Conversion

A Rate r states how many units of a quote currency one unit of the base
currency buys.

[AmountReceivedForBase] returns the quote currency received for spending
base currency: the exact product truncated to two digits.

[AmountReceivedForQuote] returns the base currency received for spending
quote currency: the largest amount whose cost at r does not exceed the
amount spent.

Both functions are monotone in the amount, and converting the result of one
back through the other never returns more than was spent.

Market rates are quantized to four digits by [NewRateFromDecimal] using
[Floor] for rates offered to buyers and [Ceil] for rates offered to sellers.

# Errors

Every error returned by this package wraps either [ErrShape], for values that
are not a two-integer pair, or [ErrRange], for sign, range, precision and
zero-rate violations.
Use [errors.Is] to tell them apart.
Only the Must* constructors panic.
*/
package fx
