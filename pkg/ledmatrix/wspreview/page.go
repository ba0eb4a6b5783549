package wspreview

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>LED panel preview</title>
<style>
body { background: #111; color: #888; font-family: monospace; }
canvas { image-rendering: pixelated; background: #000; }
</style>
</head>
<body>
<canvas id="panel"></canvas>
<div id="status">connecting</div>
<script>
const scale = 8;
const canvas = document.getElementById("panel");
const status = document.getElementById("status");
const ctx = canvas.getContext("2d");
let topo = null;
let frames = 0;

const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
ws.binaryType = "arraybuffer";
ws.onmessage = (ev) => {
  if (typeof ev.data === "string") {
    topo = JSON.parse(ev.data);
    canvas.width = topo.width * scale;
    canvas.height = topo.height * scale;
    return;
  }
  if (!topo) return;
  const px = new Uint8Array(ev.data);
  for (let y = 0; y < topo.height; y++) {
    for (let x = 0; x < topo.width; x++) {
      const i = (y * topo.width + x) * 3;
      ctx.fillStyle = "rgb(" + px[i] + "," + px[i + 1] + "," + px[i + 2] + ")";
      ctx.beginPath();
      ctx.arc(x * scale + scale / 2, y * scale + scale / 2, scale * 0.4, 0, 2 * Math.PI);
      ctx.fill();
    }
  }
  frames++;
  status.textContent = topo.width + "x" + topo.height + " " + topo.hardware_mapping + " frame " + frames;
};
ws.onclose = () => { status.textContent = "disconnected"; };
</script>
</body>
</html>
`
